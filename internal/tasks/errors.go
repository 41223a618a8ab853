package tasks

import (
	"errors"
	"fmt"
)

// Ожидаемые отказы. Все они восстановимы и показываются пользователю текстом,
// остальные ошибки считаются инфраструктурными.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidCaller     = errors.New("invalid caller")
	ErrNotOwnedByCaller  = errors.New("not owned by caller")
	ErrInvalidState      = errors.New("invalid state")
	ErrAlreadyClaimed    = fmt.Errorf("already claimed: %w", ErrInvalidState)
	ErrInvalidRating     = errors.New("invalid rating")
	ErrInvalidDeadline   = errors.New("invalid deadline")
	ErrEmptySolution     = errors.New("empty solution")
	ErrInvalidField      = errors.New("invalid field")
	ErrAlreadyRegistered = errors.New("already registered")
)

// IsRefusal: ошибка из списка ожидаемых отказов.
func IsRefusal(err error) bool {
	for _, e := range []error{
		ErrNotFound, ErrInvalidCaller, ErrNotOwnedByCaller, ErrInvalidState,
		ErrInvalidRating, ErrInvalidDeadline, ErrEmptySolution, ErrInvalidField,
		ErrAlreadyRegistered,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// Refusal возвращает текст отказа для пользователя. Для инфраструктурных ошибок: общий текст.
func Refusal(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyClaimed):
		return "❌ Задание уже взято другим помощником"
	case errors.Is(err, ErrNotFound):
		return "❌ Задание не найдено"
	case errors.Is(err, ErrInvalidCaller):
		return "❌ Действие недоступно для вашей роли"
	case errors.Is(err, ErrNotOwnedByCaller):
		return "❌ Это не ваше задание"
	case errors.Is(err, ErrInvalidState):
		return "❌ Действие недоступно в текущем статусе задания"
	case errors.Is(err, ErrInvalidRating):
		return "❌ Оценка должна быть от 1 до 5"
	case errors.Is(err, ErrInvalidDeadline):
		return "❌ Срок сдачи должен быть позже сегодняшнего дня"
	case errors.Is(err, ErrEmptySolution):
		return "❌ Решение пустое: отправьте текст, фото или документ"
	case errors.Is(err, ErrInvalidField):
		return "❌ " + fieldMessage(err)
	case errors.Is(err, ErrAlreadyRegistered):
		return "Вы уже зарегистрированы. Используйте /menu"
	default:
		return "⚠️ Что-то пошло не так, попробуйте позже"
	}
}

// FieldError уточняет, какое поле не прошло проверку.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }
func (e *FieldError) Unwrap() error { return ErrInvalidField }

func fieldMessage(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return "Некорректное значение"
}
