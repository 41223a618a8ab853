package tasks

import (
	"context"
	"fmt"
)

// RecomputeRating пересчитывает репутацию помощника как среднее оценок по его
// завершённым оценённым заданиям. Без оценённых заданий значение не трогаем:
// ноль выставляет только регистрация.
// Вызывать внутри InTx: строка помощника блокируется до чтения оценок, иначе
// параллельная оценка другого задания того же помощника перезапишет среднее.
func RecomputeRating(ctx context.Context, store Store, helperID int64) error {
	if err := store.LockUser(ctx, helperID); err != nil {
		return fmt.Errorf("lock helper %d: %w", helperID, err)
	}
	count, sum, err := store.HelperRatingStats(ctx, helperID)
	if err != nil {
		return fmt.Errorf("rating stats for %d: %w", helperID, err)
	}
	if count == 0 {
		return nil
	}
	if err := store.SetUserRating(ctx, helperID, float64(sum)/float64(count)); err != nil {
		return fmt.Errorf("set rating for %d: %w", helperID, err)
	}
	return nil
}
