package ui

import "time"

// FormatStatus возвращает иконку, цвет и текст для статуса записи или шага.
func FormatStatus(status string) (icon, color, text string) {
	switch status {
	case "succeeded":
		return IconCheckmark, ColorGreen, "успешно"
	case "failed":
		return IconCross, ColorRed, "ошибка"
	case "running":
		return IconPlay, ColorCyan, "выполняется"
	case "pending":
		return IconClock, ColorYellow, "не выполнялся"
	default:
		return IconClock, ColorYellow, status
	}
}

// Mark отмечает строку, если условие выполнено.
func Mark(ok bool) string {
	if ok {
		return ColorGreen + IconCheckmark + ColorReset
	}
	return ColorRed + IconCross + ColorReset
}

func FormatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(100 * time.Millisecond).String()
}

const TimeLayout = "2006-01-02 15:04:05"
