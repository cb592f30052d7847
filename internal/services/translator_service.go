package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	resp "tripflow/internal/models/response_models"
	"tripflow/pkg/utils"
)

type TranslatorServiceInterface interface {
	Translate(ctx context.Context, days []resp.RichDay, lang string) ([]resp.RichDay, bool)
}

type TranslatorService struct {
	llm utils.LLMClient
}

func NewTranslatorService(llm utils.LLMClient) *TranslatorService {
	return &TranslatorService{llm: llm}
}

// NeedsTranslation is false for an empty language and any English variant.
func NeedsTranslation(lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	return lang != "" && lang != "en" && !strings.HasPrefix(lang, "en-") && !strings.HasPrefix(lang, "en_")
}

type translationPayload struct {
	Days []resp.RichDay `json:"days"`
}

// Translate returns the translated days and true, or the input unchanged and false.
func (t *TranslatorService) Translate(ctx context.Context, days []resp.RichDay, lang string) ([]resp.RichDay, bool) {
	if !NeedsTranslation(lang) || len(days) == 0 {
		return days, false
	}
	logger := log.With().Str("language", lang).Logger()

	payload, err := json.Marshal(translationPayload{Days: days})
	if err != nil {
		logger.Warn().Err(err).Msg("encode itinerary for translation failed")
		return days, false
	}
	raw, err := t.llm.GenerateText(ctx, buildTranslatePrompt(payload, lang),
		utils.GenerateOptions{Temperature: 0.2, MaxOutputTokens: 8192, JSON: true})
	if err != nil {
		logger.Warn().Err(err).Msg("translation failed, keeping original language")
		return days, false
	}

	var out translationPayload
	if err := utils.ExtractJSON(raw, &out); err != nil {
		logger.Warn().Err(err).Msg("translation response is not JSON, keeping original language")
		return days, false
	}
	if len(out.Days) != len(days) {
		logger.Warn().Int("got", len(out.Days)).Int("want", len(days)).Msg("translation changed the day count, keeping original language")
		return days, false
	}
	for i := range out.Days {
		out.Days[i].Day = days[i].Day
		if strings.TrimSpace(out.Days[i].Title) == "" || len(out.Days[i].Activities) == 0 {
			logger.Warn().Int("day", days[i].Day).Msg("translation dropped content, keeping original language")
			return days, false
		}
		for j := range out.Days[i].Activities {
			if j < len(days[i].Activities) {
				out.Days[i].Activities[j] = keepStructure(days[i].Activities[j], out.Days[i].Activities[j])
			}
		}
	}
	return out.Days, true
}

// keepStructure carries the place and coordinates of the original activity over to its
// translation. A structured activity translated into a bare line stays structured, with the
// line as its title, so the place survives a checkpoint round trip.
func keepStructure(orig, translated resp.Activity) resp.Activity {
	if orig.IsText() {
		return translated
	}
	if translated.IsText() {
		return resp.Activity{
			Title:       translated.Text,
			Location:    orig.Place(),
			Coordinates: orig.Coordinates,
			Category:    orig.Category,
		}
	}
	if translated.Coordinates == nil {
		translated.Coordinates = orig.Coordinates
	}
	return translated
}
