package errs

import "strings"

// Reason переводит ошибку в сообщение для пользователя. Исходный текст
// ошибки наружу не попадает.
func Reason(err error) string {
	if err == nil {
		return ""
	}

	switch KindOf(err) {
	case KindEnvironmentUnsupported:
		return "запись браузера недоступна в этом окружении"
	case KindStaleContext:
		return "страница была закрыта во время записи"
	case KindNavigationFailed:
		if strings.Contains(err.Error(), "ERR_NAME_NOT_RESOLVED") {
			return "не удалось открыть сайт, проверьте URL"
		}
		return "не удалось загрузить страницу, сайт может ограничивать автоматизированный доступ"
	case KindTimeout, KindCancelled:
		return "запись превысила отведённое время, попробуйте более простой сайт"
	case KindPlannerUnavailable:
		return "планировщик недоступен, использован встроенный план"
	case KindNoMatchingElement:
		return "элемент для действия не найден на странице"
	case KindInvalidAction:
		return "некорректное действие в плане"
	default:
		return "не удалось выполнить запись"
	}
}
