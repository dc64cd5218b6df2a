package ui

import (
	"fmt"
	"io"
)

const Version = "0.2.0"

// PrintWelcome выводит заголовок приложения.
func PrintWelcome(w io.Writer) {
	fmt.Fprintln(w, ColorBold+IconVideo+" video-ai v"+Version+ColorReset)
	fmt.Fprintln(w, ColorGray+"Запись браузерных сценариев по описанию задачи"+ColorReset)
	fmt.Fprintln(w, ColorGray+"Используется: Chromium (Playwright) + OpenAI"+ColorReset)
	fmt.Fprintln(w)
}

// PrintHint выводит подсказку по следующей команде.
func PrintHint(w io.Writer, text string) {
	fmt.Fprintln(w, ColorCyan+IconBulb+" Совет:"+ColorReset+" "+text)
}
