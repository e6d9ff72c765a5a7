package grocery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVocabularyAllowed(t *testing.T) {
	v := DefaultVocabulary()

	assert.True(t, v.Allowed("Flour"))
	assert.True(t, v.Allowed("  eggs "))
	assert.True(t, v.Allowed("tomatoes"))
	assert.True(t, v.Allowed("strawberries"))
	assert.False(t, v.Allowed("unobtainium"))
	assert.False(t, v.Allowed(""))
}

func TestVocabularyUnknown(t *testing.T) {
	v := NewVocabulary(map[string]string{"Peanut Butter": "Pantry", "milk": "Dairy"})

	assert.Equal(t, []string{"shellfish", "gluten"}, v.Unknown([]string{"peanut butter", " shellfish ", "Milk", "gluten"}))
	assert.Empty(t, v.Unknown(nil))
}

func TestVocabularyCategory(t *testing.T) {
	v := DefaultVocabulary()

	assert.Equal(t, "Dairy", v.Category("Cheese"))
	assert.Equal(t, "Produce", v.Category("cherry tomatoes"))
	assert.Equal(t, "Produce", v.Category("red bell pepper"))
	assert.Equal(t, "Spices", v.Category("cracked pepper"))
	assert.Equal(t, "Pantry", v.Category("tomato sauce"))
	assert.Equal(t, "Other", v.Category("dish soap"))
	assert.Equal(t, "Other", v.Category(""))
}
