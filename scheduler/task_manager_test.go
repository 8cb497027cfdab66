package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findsforliving-lab/finds4livingbot/models"
)

func waitForTask(t *testing.T, tm *TaskManager, id string) *models.ExtractionTask {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if task, ok := tm.GetTask(id); ok && task.IsCompleted() {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("task did not complete in time")
	return nil
}

func TestTaskManagerCompletesTask(t *testing.T) {
	extract := func(ctx context.Context, url string) (*models.ExtractResponse, error) {
		return &models.ExtractResponse{
			OriginalURL: url,
			FinalURL:    url,
			Product:     &models.ProductRecord{Title: "Mouse Gamer", Images: []string{}},
		}, nil
	}

	tm := NewTaskManager(extract, 2)
	defer tm.Stop()

	task := tm.Submit("https://shop.example.com/mouse")
	require.NotEmpty(t, task.ID)

	done := waitForTask(t, tm, task.ID)
	assert.Equal(t, models.TaskStatusCompleted, done.Status)
	require.NotNil(t, done.Result)
	assert.Equal(t, "Mouse Gamer", done.Result.Product.Title)
}

func TestTaskManagerFailsTask(t *testing.T) {
	extract := func(ctx context.Context, url string) (*models.ExtractResponse, error) {
		return nil, errors.New("fetch failed")
	}

	tm := NewTaskManager(extract, 1)
	defer tm.Stop()

	task := tm.Submit("https://shop.example.com/gone")

	done := waitForTask(t, tm, task.ID)
	assert.Equal(t, models.TaskStatusFailed, done.Status)
	assert.Contains(t, done.Error, "fetch failed")
}

func TestTaskManagerUnknownTask(t *testing.T) {
	tm := NewTaskManager(nil, 1)
	defer tm.Stop()

	_, ok := tm.GetTask("missing")
	assert.False(t, ok)
}

func TestTaskManagerStopFailsQueuedTasks(t *testing.T) {
	gate := make(chan struct{})
	extract := func(ctx context.Context, url string) (*models.ExtractResponse, error) {
		<-gate
		return &models.ExtractResponse{Product: models.NewProductRecord()}, nil
	}

	tm := NewTaskManager(extract, 1)

	first := tm.Submit("https://shop.example.com/a")
	require.Eventually(t, func() bool {
		task, ok := tm.GetTask(first.ID)
		return ok && task.Status == models.TaskStatusProcessing
	}, 2*time.Second, 10*time.Millisecond)

	// the single worker is busy, so this one stays queued
	second := tm.Submit("https://shop.example.com/b")

	done := make(chan struct{})
	go func() {
		tm.Stop()
		close(done)
	}()

	// let Stop close the stop channel before the worker frees up
	time.Sleep(50 * time.Millisecond)
	close(gate)
	<-done

	firstDone, ok := tm.GetTask(first.ID)
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusCompleted, firstDone.Status)

	secondDone, ok := tm.GetTask(second.ID)
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusFailed, secondDone.Status)
	assert.Contains(t, secondDone.Error, "stopped")
}

func TestTaskManagerCleanup(t *testing.T) {
	extract := func(ctx context.Context, url string) (*models.ExtractResponse, error) {
		return &models.ExtractResponse{Product: models.NewProductRecord()}, nil
	}

	tm := NewTaskManager(extract, 1)
	defer tm.Stop()

	task := tm.Submit("https://shop.example.com/p")
	waitForTask(t, tm, task.ID)

	assert.Equal(t, 0, tm.CleanupOldTasks(time.Minute))
	assert.Equal(t, 1, tm.CleanupOldTasks(0))

	_, ok := tm.GetTask(task.ID)
	assert.False(t, ok)
}
