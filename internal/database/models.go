// Package database хранит историю записей и логи запросов к LLM в PostgreSQL
// через GORM.
package database

import "time"

// Recording представляет одну завершённую запись или симуляцию.
// ID совпадает с идентификатором сессии.
type Recording struct {
	ID             string          `gorm:"primaryKey;type:varchar(36)"`
	Type           string          `gorm:"type:varchar(16);not null"`             // recording, simulation
	URL            string          `gorm:"type:text;not null"`                    // Адрес страницы
	Task           string          `gorm:"type:text;not null"`                    // Задача пользователя
	Mode           string          `gorm:"type:varchar(16);not null"`             // Режим планирования
	Status         string          `gorm:"type:varchar(16);not null;index"`       // succeeded, failed
	ErrorKind      string          `gorm:"type:varchar(32)"`                      // Вид ошибки уровня сессии
	FailureReason  string          `gorm:"type:text"`                             // Сообщение для пользователя
	ArtifactPath   string          `gorm:"type:text"`                             // Путь к видео
	Screenshots    []string        `gorm:"serializer:json;type:text"`             // Пути к скриншотам
	PlanSource     string          `gorm:"type:varchar(16)"`                      // planned, fallback
	PlannerError   string          `gorm:"type:varchar(32)"`                      // Причина встроенного плана
	Host           string          `gorm:"type:varchar(16)"`                      // Тип хоста
	CanRecord      bool            `gorm:"not null;default:false"`                // Доступна ли запись
	PageTitle      string          `gorm:"type:text"`                             // Заголовок страницы
	Buttons        int             `gorm:"not null;default:0"`                    // Найдено кнопок
	Inputs         int             `gorm:"not null;default:0"`                    // Найдено полей
	Links          int             `gorm:"not null;default:0"`                    // Найдено ссылок
	Forms          int             `gorm:"not null;default:0"`                    // Найдено форм
	StepsTotal     int             `gorm:"not null;default:0"`                    // Шагов в плане
	StepsSucceeded int             `gorm:"not null;default:0"`                    // Успешных шагов
	DurationMs     int64           `gorm:"not null;default:0"`                    // Длительность записи
	StartedAt      time.Time       `gorm:"not null"`                              // Начало записи
	CreatedAt      time.Time       `gorm:"autoCreateTime;index"`                  // Время сохранения
	Steps          []RecordingStep `gorm:"foreignKey:RecordingID;constraint:OnDelete:CASCADE"`
}

// RecordingStep представляет один шаг плана и результат его выполнения.
type RecordingStep struct {
	ID               uint      `gorm:"primaryKey"`
	RecordingID      string    `gorm:"type:varchar(36);index;not null"` // ID записи
	StepNo           int       `gorm:"not null"`                        // Номер шага
	ActionType       string    `gorm:"type:varchar(16);not null"`       // click, fill, select, wait, scroll, hover, capture
	TargetSelector   string    `gorm:"type:text"`                       // Подсказка селектора от планировщика
	ResolvedSelector string    `gorm:"type:text"`                       // Селектор, который сработал
	Value            string    `gorm:"type:text"`                       // Введённое значение (замаскировано)
	Description      string    `gorm:"type:text"`                       // Описание шага
	Reasoning        string    `gorm:"type:text"`                       // Обоснование от LLM
	Status           string    `gorm:"type:varchar(16);not null"`       // pending, succeeded, failed
	ErrorKind        string    `gorm:"type:varchar(32)"`                // Вид ошибки шага
	DurationMs       int64     `gorm:"not null;default:0"`              // Длительность шага
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// LlmLog представляет лог запроса к LLM.
// Сохраняет промпт, ответ, модель и количество использованных токенов.
type LlmLog struct {
	ID           uint      `gorm:"primaryKey"`
	SessionID    string    `gorm:"type:varchar(36);index"`    // ID сессии записи
	Role         string    `gorm:"type:varchar(16);not null"` // Роль (assistant, error)
	PromptText   string    `gorm:"type:text;not null"`        // Текст промпта
	ResponseText string    `gorm:"type:text"`                 // Текст ответа
	Model        string    `gorm:"type:varchar(64)"`          // Модель (gpt-4o)
	TokensUsed   int       // Количество токенов
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}
