package recordstore

import (
	"context"
)

type guardKey struct{}

// Guard сериализует транзакции чтение-изменение-запись над хранилищем записей.
// Это один глобальный мьютекс на все хранилище: данных мало, и грубая блокировка
// проще и надежнее блокировок по коллекциям или записям.
//
// Guard реализован как семафор на один слот: ожидающие горутины встают в очередь
// канала и обслуживаются по порядку, так что ожидание не голодает.
type Guard struct {
	sem chan struct{}
}

// NewGuard создает новый Guard
func NewGuard() *Guard {
	return &Guard{sem: make(chan struct{}, 1)}
}

// Do выполняет work эксклюзивно относительно всех других вызовов Do этого Guard.
//
// Пока вызов стоит в очереди, он уважает ctx: отмененный запрос уходит с ctx.Err()
// и work не запускается. После захвата work получает контекст без отмены, чтобы
// начатая транзакция завершилась или упала целиком, а не оборвалась посреди записи.
//
// Повторный вход (вызов Do из work) — ошибка программиста, Do паникует.
// Ошибка work возвращается как есть, блокировка освобождается в любом случае.
func (g *Guard) Do(ctx context.Context, work func(ctx context.Context) error) error {
	if held, _ := ctx.Value(guardKey{}).(*Guard); held == g {
		panic("recordstore: re-entrant exclusive access")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.sem }()

	txCtx := context.WithValue(context.WithoutCancel(ctx), guardKey{}, g)
	return work(txCtx)
}

// Held сообщает, выполняется ли код с этим контекстом внутри Do данного Guard
func (g *Guard) Held(ctx context.Context) bool {
	held, _ := ctx.Value(guardKey{}).(*Guard)
	return held == g
}
