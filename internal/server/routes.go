package server

import (
	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/handlers"
)

type routeHandlers struct {
	health        *handlers.HealthHandler
	auth          *handlers.AuthHandler
	survey        *handlers.SurveyHandler
	mealPlans     *handlers.MealPlanHandler
	generate      *handlers.GenerateHandler
	grocery       *handlers.GroceryHandler
	entries       *handlers.EntryHandler
	recipes       *handlers.RecipeHandler
	calendar      *handlers.CalendarHandler
	notifications *handlers.NotificationHandler
	admin         *handlers.AdminHandler
}

type routeMiddleware struct {
	auth        echo.MiddlewareFunc
	streamAuth  echo.MiddlewareFunc
	admin       echo.MiddlewareFunc
	authLimiter echo.MiddlewareFunc
	aiLimiter   echo.MiddlewareFunc
}

func registerRoutes(e *echo.Echo, h routeHandlers, mw routeMiddleware) {
	e.GET("/health", h.health.Health)

	api := e.Group("/api/v1")

	authGroup := api.Group("/auth", mw.authLimiter)
	authGroup.POST("/register", h.auth.Register)
	authGroup.POST("/login", h.auth.Login)
	authGroup.POST("/refresh", h.auth.Refresh)
	authGroup.POST("/logout", h.auth.Logout)
	authGroup.GET("/me", h.auth.Me, mw.auth)

	survey := api.Group("/survey", mw.auth)
	survey.GET("", h.survey.Get)
	survey.PUT("", h.survey.Put)

	plans := api.Group("/meal-plans", mw.auth)
	plans.GET("", h.mealPlans.List)
	plans.POST("", h.mealPlans.Create)
	plans.POST("/generate", h.generate.Generate, mw.aiLimiter)
	plans.GET("/:id", h.mealPlans.Get)
	plans.GET("/:id/week", h.mealPlans.Week)
	plans.PATCH("/:id/status", h.mealPlans.UpdateStatus)
	plans.DELETE("/:id", h.mealPlans.Delete)
	plans.GET("/:id/grocery-list", h.grocery.List)
	plans.GET("/:id/grocery-list/export/json", h.grocery.ExportJSON)
	plans.GET("/:id/grocery-list/export/csv", h.grocery.ExportCSV)
	plans.POST("/:id/checkout", h.grocery.CreateCheckout)
	plans.POST("/:id/entries", h.entries.Add)
	plans.PATCH("/:id/entries/:entryId", h.entries.Update)
	plans.DELETE("/:id/entries/:entryId", h.entries.Delete)
	plans.POST("/:id/entries/:entryId/swap", h.entries.Swap, mw.aiLimiter)

	recipes := api.Group("/recipes", mw.auth)
	recipes.GET("/favorites", h.recipes.ListFavorites)
	recipes.GET("/:id", h.recipes.Get)
	recipes.PUT("/:id/ingredients", h.recipes.UpdateIngredients)
	recipes.POST("/:id/favorite", h.recipes.AddFavorite)
	recipes.DELETE("/:id/favorite", h.recipes.RemoveFavorite)

	// callback приходит из браузера после Google и проверяется по state
	api.GET("/calendar/google/callback", h.calendar.GoogleCallback)

	calendar := api.Group("/calendar", mw.auth)
	calendar.GET("/connections", h.calendar.ListConnections)
	calendar.GET("/google/connect", h.calendar.GoogleConnect)
	calendar.POST("/apple/connect", h.calendar.AppleConnect)
	calendar.DELETE("/connections/:provider", h.calendar.DeleteConnection)
	calendar.GET("/events", h.calendar.Events)

	notifications := api.Group("/notifications", mw.streamAuth)
	notifications.GET("/stream", h.notifications.Stream)

	admin := api.Group("/admin", mw.auth, mw.admin)
	admin.GET("/users", h.admin.ListUsers)
	admin.GET("/ai-requests", h.admin.ListAIRequests)
	admin.GET("/usage", h.admin.Usage)
}
