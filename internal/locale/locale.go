// Package locale holds the user-facing strings for the supported languages.
package locale

import (
	"strings"

	"github.com/nhle/focusproof/internal/model"
)

// Lang is a supported display language tag.
type Lang string

const (
	English Lang = "en"
	Arabic  Lang = "ar"
)

// Parse returns the Lang for tag, defaulting to English.
func Parse(tag string) Lang {
	if strings.EqualFold(strings.TrimSpace(tag), string(Arabic)) {
		return Arabic
	}
	return English
}

// Strings is the full text table for one language.
type Strings struct {
	ReminderTitle string
	// ReminderBody contains a single %s for the task title.
	ReminderBody string

	ChatEmpty string
	ChatError string

	CompanionIdle    string
	CompanionSuccess string
	CompanionFailure string

	Today      string
	Upcoming   string
	EmptyToday string

	StatusPending   string
	StatusActive    string
	StatusVerifying string
	StatusCompleted string
	StatusFailed    string

	Points    string
	Completed string
	Failed    string
}

var tables = map[Lang]Strings{
	English: {
		ReminderTitle:    "Task reminder",
		ReminderBody:     "Today is the day for: %s",
		ChatEmpty:        "I apologize, words escape me at this moment.",
		ChatError:        "It seems there is an obstacle between me and your answer now.",
		CompanionIdle:    "I am here whenever you are ready to begin.",
		CompanionSuccess: "Well done. Your effort has borne fruit.",
		CompanionFailure: "Not this time. Reflect, and try again with a steadier hand.",
		Today:            "Today",
		Upcoming:         "Upcoming",
		EmptyToday:       "Nothing planned for today. Press n to add a task.",
		StatusPending:    "Commence",
		StatusActive:     "In progress",
		StatusVerifying:  "Analysing",
		StatusCompleted:  "Verified",
		StatusFailed:     "Failed",
		Points:           "Points",
		Completed:        "Completed",
		Failed:           "Unfinished",
	},
	Arabic: {
		ReminderTitle:    "تذكير بمهمة",
		ReminderBody:     "اليوم موعد مهمتك: %s",
		ChatEmpty:        "أعتذر، خانتني الكلمات في هذه اللحظة.",
		ChatError:        "يبدو أن هناك عائقاً يحول بيني وبين إجابتك الآن.",
		CompanionIdle:    "أنا هنا متى ما كنت مستعداً للبدء.",
		CompanionSuccess: "أحسنت، لقد أثمر جهدك.",
		CompanionFailure: "ليس هذه المرة. تأمّل، ثم أعد المحاولة بعزم أثبت.",
		Today:            "اليوم",
		Upcoming:         "القادم",
		EmptyToday:       "لا مهام لليوم. اضغط n لإضافة مهمة.",
		StatusPending:    "ابدأ",
		StatusActive:     "قيد التنفيذ",
		StatusVerifying:  "قيد التحليل",
		StatusCompleted:  "تم التحقق",
		StatusFailed:     "لم تكتمل",
		Points:           "النقاط",
		Completed:        "المكتملة",
		Failed:           "غير المكتملة",
	},
}

// For returns the string table for lang.
func For(lang Lang) Strings {
	if s, ok := tables[lang]; ok {
		return s
	}
	return tables[English]
}

// StatusLabel returns the localized label for a task status.
func (s Strings) StatusLabel(status model.Status) string {
	switch status {
	case model.StatusActive:
		return s.StatusActive
	case model.StatusVerifying:
		return s.StatusVerifying
	case model.StatusCompleted:
		return s.StatusCompleted
	case model.StatusFailed:
		return s.StatusFailed
	default:
		return s.StatusPending
	}
}

// MoodMessage returns the companion's default line for mood.
func (s Strings) MoodMessage(mood model.Mood) string {
	switch mood {
	case model.MoodHappy:
		return s.CompanionSuccess
	case model.MoodSad:
		return s.CompanionFailure
	default:
		return s.CompanionIdle
	}
}
