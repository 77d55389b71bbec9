package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoArmGo/AppStore/internal/config"
	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/domain"
	"github.com/GoArmGo/AppStore/internal/logger"
	"github.com/GoArmGo/AppStore/internal/messaging/payloads"
)

type fakeMaintenance struct {
	cleanupDays []int
	removed     int
	backups     int
	err         error
}

func (f *fakeMaintenance) Cleanup(_ context.Context, days int) (int, error) {
	f.cleanupDays = append(f.cleanupDays, days)
	return f.removed, f.err
}

func (f *fakeMaintenance) Backup(context.Context) (ports.BackupHandle, error) {
	f.backups++
	return ports.BackupHandle{Location: "backup-1.json"}, f.err
}

type fakePublisher struct {
	published []payloads.MaintenancePayload
}

func (f *fakePublisher) PublishMaintenanceJob(_ context.Context, p payloads.MaintenancePayload) error {
	f.published = append(f.published, p)
	return nil
}

func TestMaintenanceHandler_Dispatch(t *testing.T) {
	m := &fakeMaintenance{removed: 3}
	handle := maintenanceHandler(m, 30, logger.Discard())

	require.NoError(t, handle(testContext(t), payloads.MaintenancePayload{Job: payloads.JobCleanup}))
	require.NoError(t, handle(testContext(t), payloads.MaintenancePayload{Job: payloads.JobCleanup, MaxAgeDays: 7}))
	require.NoError(t, handle(testContext(t), payloads.MaintenancePayload{Job: payloads.JobBackup}))

	assert.Equal(t, []int{30, 7}, m.cleanupDays)
	assert.Equal(t, 1, m.backups)
}

func TestMaintenanceHandler_UnknownJobIsValidationError(t *testing.T) {
	handle := maintenanceHandler(&fakeMaintenance{}, 30, logger.Discard())

	err := handle(testContext(t), payloads.MaintenancePayload{Job: "vacuum"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMaintenanceHandler_PropagatesFailure(t *testing.T) {
	boom := errors.New("disk full")
	handle := maintenanceHandler(&fakeMaintenance{err: boom}, 30, logger.Discard())

	assert.ErrorIs(t, handle(testContext(t), payloads.MaintenancePayload{Job: payloads.JobBackup}), boom)
}

func TestNewScheduler(t *testing.T) {
	noop := func(context.Context, payloads.MaintenancePayload) error { return nil }

	c, err := newScheduler(testContext(t), "", "", noop, logger.Discard())
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = newScheduler(testContext(t), "@daily", "0 3 * * *", noop, logger.Discard())
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Entries(), 2)

	_, err = newScheduler(testContext(t), "every tuesday", "", noop, logger.Discard())
	assert.Error(t, err)
}

func newTestApp(publisher ports.MaintenancePublisher) *App {
	cfg := &config.Config{RetentionMaxAgeDays: 30}
	return NewApp(cfg, logger.Discard(), Deps{Maintenance: &fakeMaintenance{}, Publisher: publisher})
}

func TestRunEnqueue(t *testing.T) {
	pub := &fakePublisher{}
	a := newTestApp(pub)

	require.NoError(t, a.runEnqueue(testContext(t), payloads.JobCleanup, 0))
	require.NoError(t, a.runEnqueue(testContext(t), payloads.JobCleanup, 14))
	require.NoError(t, a.runEnqueue(testContext(t), payloads.JobBackup, 0))

	assert.Equal(t, []payloads.MaintenancePayload{
		{Job: payloads.JobCleanup, MaxAgeDays: 30},
		{Job: payloads.JobCleanup, MaxAgeDays: 14},
		{Job: payloads.JobBackup},
	}, pub.published)

	assert.ErrorIs(t, a.runEnqueue(testContext(t), "vacuum", 0), domain.ErrValidation)
	assert.ErrorIs(t, a.runEnqueue(testContext(t), payloads.JobCleanup, -1), domain.ErrValidation)
}

func TestRunEnqueue_RequiresRabbitMQ(t *testing.T) {
	a := newTestApp(nil)
	assert.Error(t, a.runEnqueue(testContext(t), payloads.JobBackup, 0))
}

func TestRun_UnknownModeClosesResources(t *testing.T) {
	var order []string
	a := NewApp(&config.Config{}, logger.Discard(), Deps{
		Closers: []func() error{
			func() error { order = append(order, "db"); return nil },
			func() error { order = append(order, "rabbitmq"); return nil },
		},
	})

	err := a.Run(testContext(t), Options{Mode: "worker"})
	require.Error(t, err)
	assert.Equal(t, []string{"rabbitmq", "db"}, order)
}
