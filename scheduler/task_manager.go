package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/findsforliving-lab/finds4livingbot/models"
)

// ExtractFunc runs the full fetch-and-extract pipeline for one URL.
type ExtractFunc func(ctx context.Context, url string) (*models.ExtractResponse, error)

// extractTimeout bounds a single extraction, browser rendering included.
const extractTimeout = 60 * time.Second

// TaskManager runs extractions asynchronously on a fixed worker pool so slow
// storefronts do not hold API requests open.
type TaskManager struct {
	mu      sync.RWMutex
	tasks   map[string]*models.ExtractionTask
	queue   chan *models.ExtractionTask
	extract ExtractFunc
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewTaskManager starts the worker pool.
func NewTaskManager(extract ExtractFunc, workers int) *TaskManager {
	if workers <= 0 {
		workers = 3
	}

	tm := &TaskManager{
		tasks:   make(map[string]*models.ExtractionTask),
		queue:   make(chan *models.ExtractionTask, 100),
		extract: extract,
		stop:    make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		tm.wg.Add(1)
		go tm.worker()
	}

	return tm
}

// Submit queues a URL for extraction and returns the tracking task.
func (tm *TaskManager) Submit(url string) *models.ExtractionTask {
	task := models.NewExtractionTask(url)

	tm.mu.Lock()
	tm.tasks[task.ID] = task
	tm.mu.Unlock()

	select {
	case tm.queue <- task:
	default:
		tm.mu.Lock()
		task.Fail("task queue is full")
		tm.mu.Unlock()
		log.Printf("Task queue full, rejected %s", url)
	}

	return tm.snapshot(task.ID)
}

// GetTask returns a snapshot of a task by ID.
func (tm *TaskManager) GetTask(id string) (*models.ExtractionTask, bool) {
	tm.mu.RLock()
	_, ok := tm.tasks[id]
	tm.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return tm.snapshot(id), true
}

// GetStats returns task counts per status.
func (tm *TaskManager) GetStats() map[string]int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	stats := map[string]int{}
	for _, task := range tm.tasks {
		stats[string(task.Status)]++
	}
	stats["total"] = len(tm.tasks)
	return stats
}

// CleanupOldTasks drops finished tasks older than maxAge and returns how
// many were removed.
func (tm *TaskManager) CleanupOldTasks(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	tm.mu.Lock()
	defer tm.mu.Unlock()

	removed := 0
	for id, task := range tm.tasks {
		if task.IsCompleted() && task.CompletedAt != nil && task.CompletedAt.Before(cutoff) {
			delete(tm.tasks, id)
			removed++
		}
	}
	return removed
}

// Stop shuts the workers down. Running tasks finish; tasks still waiting in
// the queue are failed so no task is left pending forever.
func (tm *TaskManager) Stop() {
	tm.once.Do(func() {
		close(tm.stop)
		tm.wg.Wait()

		for {
			select {
			case task := <-tm.queue:
				tm.mu.Lock()
				task.Fail("task manager stopped")
				tm.mu.Unlock()
			default:
				return
			}
		}
	})
}

func (tm *TaskManager) worker() {
	defer tm.wg.Done()

	for {
		// stop takes priority over further queue reads so shutdown does
		// not race new work
		select {
		case <-tm.stop:
			return
		default:
		}

		select {
		case <-tm.stop:
			return
		case task := <-tm.queue:
			tm.process(task)
		}
	}
}

func (tm *TaskManager) process(task *models.ExtractionTask) {
	tm.mu.Lock()
	task.Start()
	tm.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	result, err := tm.extract(ctx, task.URL)

	tm.mu.Lock()
	if err != nil {
		task.Fail(err.Error())
		log.Printf("Task %s failed for %s: %v", task.ID, task.URL, err)
	} else {
		task.Complete(result)
	}
	tm.mu.Unlock()
}

// snapshot copies a task so callers can marshal it without racing the
// workers.
func (tm *TaskManager) snapshot(id string) *models.ExtractionTask {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	task, ok := tm.tasks[id]
	if !ok {
		return nil
	}
	copied := *task
	return &copied
}
