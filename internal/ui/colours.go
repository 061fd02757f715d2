package ui

import (
	"fmt"
	"net/http"
)

const (
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m" // Bright black, often appears as gray

	ResetColor = "\033[0m"
)

var MethodColors = map[string]string{
	http.MethodGet:    Green,
	http.MethodPost:   Blue,
	http.MethodPut:    Cyan,
	http.MethodDelete: Yellow,
	http.MethodPatch:  Magenta,
}

// Method pads an HTTP method to a fixed width and colours it.
func Method(method string) string {
	color, ok := MethodColors[method]
	if !ok {
		color = Gray
	}
	return color + fmt.Sprintf(" %-7s", method) + ResetColor
}

// Status colours an HTTP status code by class.
func Status(code int) string {
	switch {
	case code >= 500:
		return Red + fmt.Sprint(code) + ResetColor
	case code >= 400:
		return Yellow + fmt.Sprint(code) + ResetColor
	default:
		return Green + fmt.Sprint(code) + ResetColor
	}
}

func Success(format string, args ...any) string {
	return Green + fmt.Sprintf(format, args...) + ResetColor
}

func Failure(format string, args ...any) string {
	return Red + fmt.Sprintf(format, args...) + ResetColor
}

func Muted(format string, args ...any) string {
	return Gray + fmt.Sprintf(format, args...) + ResetColor
}
