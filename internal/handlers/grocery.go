package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/checkout"
	"example.com/ai-meal-planner/backend/internal/dates"
	"example.com/ai-meal-planner/backend/internal/grocery"
	"example.com/ai-meal-planner/backend/internal/models"
	"example.com/ai-meal-planner/backend/internal/repository"
)

const grocerySourceAI = "ai"

type GroceryHandler struct {
	Plans      *repository.MealPlanRepository
	Vocabulary *grocery.Vocabulary
	Checkout   *checkout.Client
}

// NewGroceryHandler создает обработчик списка покупок.
func NewGroceryHandler(plans *repository.MealPlanRepository, vocabulary *grocery.Vocabulary, checkoutClient *checkout.Client) *GroceryHandler {
	return &GroceryHandler{Plans: plans, Vocabulary: vocabulary, Checkout: checkoutClient}
}

type GroceryExportItem struct {
	ItemName string   `json:"item_name"`
	Quantity *float64 `json:"quantity"`
	Unit     string   `json:"unit"`
	Category string   `json:"category"`
}

type GroceryExport struct {
	PlanID uuid.UUID           `json:"plan_id"`
	WeekOf dates.Date          `json:"week_of"`
	Items  []GroceryExportItem `json:"items"`
}

type CheckoutResponse struct {
	URL   string `json:"url"`
	Items int    `json:"items"`
}

// List возвращает рассчитанный список покупок; ?source=ai отдает список, предложенный моделью.
func (h *GroceryHandler) List(c echo.Context) error {
	plan, ok, err := loadPlanWithEntries(c, h.Plans)
	if !ok {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(c.QueryParam("source"))) {
	case "":
		return c.JSON(http.StatusOK, planGrocery(plan))
	case grocerySourceAI:
		items := plan.AIGroceryList
		if items == nil {
			items = []models.AIGroceryItem{}
		}
		return c.JSON(http.StatusOK, map[string][]models.AIGroceryItem{"items": items})
	default:
		return badRequest(c, "invalid source")
	}
}

// ExportJSON выгружает список покупок в JSON-файл.
func (h *GroceryHandler) ExportJSON(c echo.Context) error {
	plan, ok, err := loadPlanWithEntries(c, h.Plans)
	if !ok {
		return err
	}

	export := buildGroceryExport(plan, planGrocery(plan), h.Vocabulary)

	setAttachment(c, "grocery-"+plan.WeekOf.String()+".json")
	return c.JSON(http.StatusOK, export)
}

// ExportCSV выгружает список покупок в CSV-файл с отделами магазина.
func (h *GroceryHandler) ExportCSV(c echo.Context) error {
	plan, ok, err := loadPlanWithEntries(c, h.Plans)
	if !ok {
		return err
	}

	export := buildGroceryExport(plan, planGrocery(plan), h.Vocabulary)

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writeGroceryCSV(writer, export); err != nil {
		return serverError(c)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return serverError(c)
	}

	setAttachment(c, "grocery-"+plan.WeekOf.String()+".csv")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// CreateCheckout отправляет список покупок партнеру и возвращает ссылку на корзину.
func (h *GroceryHandler) CreateCheckout(c echo.Context) error {
	plan, ok, err := loadPlanWithEntries(c, h.Plans)
	if !ok {
		return err
	}

	if h.Checkout == nil || !h.Checkout.Enabled() {
		return serviceUnavailable(c, "checkout is not configured")
	}

	items := checkout.LineItemsFromGrocery(planGrocery(plan).Items)
	url, err := h.Checkout.CreateCheckout(c.Request().Context(), "Groceries for the week of "+plan.WeekOf.String(), items)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyList):
			return badRequest(c, "grocery list is empty")
		case errors.Is(err, checkout.ErrNotConfigured):
			return serviceUnavailable(c, "checkout is not configured")
		}
		slog.Warn("checkout failed", slog.String("plan_id", plan.ID.String()), slog.String("error", err.Error()))
		return badGateway(c, "checkout provider error")
	}

	return c.JSON(http.StatusOK, CheckoutResponse{URL: url, Items: len(items)})
}

func planGrocery(plan models.MealPlan) grocery.Result {
	return grocery.AggregateDetailed(grocery.OccurrencesFromEntries(plan.Recipes))
}

// buildGroceryExport добавляет отдел магазина к каждой строке; позиции без количества идут в конце.
func buildGroceryExport(plan models.MealPlan, result grocery.Result, vocabulary *grocery.Vocabulary) GroceryExport {
	items := make([]GroceryExportItem, 0, len(result.Items)+len(result.Unquantified))
	for _, item := range result.Items {
		quantity := item.Quantity
		items = append(items, GroceryExportItem{
			ItemName: item.ItemName,
			Quantity: &quantity,
			Unit:     item.Unit,
			Category: vocabulary.Category(item.ItemName),
		})
	}
	for _, name := range result.Unquantified {
		items = append(items, GroceryExportItem{
			ItemName: name,
			Category: vocabulary.Category(name),
		})
	}

	return GroceryExport{PlanID: plan.ID, WeekOf: plan.WeekOf, Items: items}
}

func writeGroceryCSV(writer *csv.Writer, export GroceryExport) error {
	if err := writer.Write([]string{"item_name", "quantity", "unit", "category"}); err != nil {
		return err
	}

	for _, item := range export.Items {
		quantity := ""
		if item.Quantity != nil {
			quantity = strconv.FormatFloat(*item.Quantity, 'f', -1, 64)
		}
		if err := writer.Write([]string{csvText(item.ItemName), quantity, csvText(item.Unit), csvText(item.Category)}); err != nil {
			return err
		}
	}

	return nil
}

// csvText не дает таблицам прочитать значение как формулу.
func csvText(value string) string {
	if value != "" && strings.ContainsRune("=+-@\t\r", rune(value[0])) {
		return "'" + value
	}
	return value
}

func setAttachment(c echo.Context, filename string) {
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
}
