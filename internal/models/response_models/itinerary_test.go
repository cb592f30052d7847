package response_models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivity_DecodesTextAndStructured(t *testing.T) {
	var day RichDay
	err := json.Unmarshal([]byte(`{"day":1,"title":"Arrival","activities":[
		"Check in at the hotel",
		{"time":"18:00","title":"Dinner","location":"Riverside Grill","cost":25,"duration":"2 hours"}
	]}`), &day)

	require.NoError(t, err)
	require.Len(t, day.Activities, 2)
	assert.True(t, day.Activities[0].IsText())
	assert.Equal(t, "Check in at the hotel", day.Activities[0].Line())
	assert.Equal(t, FlexString("25"), day.Activities[1].Cost)
	assert.Equal(t, "Riverside Grill", day.Activities[1].Place())
	assert.Equal(t, "18:00 - Dinner @ Riverside Grill (2 hours, ~$25)", day.Activities[1].Line())
}

func TestActivity_EncodesTextAsString(t *testing.T) {
	b, err := json.Marshal([]Activity{{Text: "Free evening"}, {Title: "Museum", Cost: "free"}})

	require.NoError(t, err)
	assert.JSONEq(t, `["Free evening",{"title":"Museum","cost":"free"}]`, string(b))
}

func TestFlexString_Null(t *testing.T) {
	var a Activity
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Walk","cost":null}`), &a))
	assert.Empty(t, a.Cost)
	assert.Equal(t, "Walk", a.Place())
}

func TestToRichDays(t *testing.T) {
	got := ToRichDays([]StoredDay{{Day: 2, Title: "Markets", Activities: []string{"Morning market"}}})

	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Day)
	assert.Equal(t, "Morning market", got[0].Activities[0].Text)
}

func TestModifications_Empty(t *testing.T) {
	assert.True(t, Modifications{}.Empty())
	n := 4
	assert.False(t, Modifications{Duration: &n}.Empty())
}

func TestActivity_TextPlaceOnlyWhenMatched(t *testing.T) {
	a := Activity{Text: "09:00 - Visit Museum @ City Museum"}
	assert.Empty(t, a.Place())

	a.Location = "City Museum"
	assert.Equal(t, "City Museum", a.Place())
	assert.Equal(t, "09:00 - Visit Museum @ City Museum", a.Line())
}
