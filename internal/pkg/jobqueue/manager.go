package jobqueue

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Manager owns the global queue instance and the periodic maintenance
// ticker that enqueues retention purges.
type Manager struct {
	queue           *Queue
	retentionTicker *time.Ticker
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

var (
	manager     *Manager
	managerOnce sync.Once
)

// InitializeManager wires the global manager. Call once at startup after
// the cache connection exists.
func InitializeManager(queue *Queue) *Manager {
	managerOnce.Do(func() {
		manager = &Manager{
			queue:  queue,
			stopCh: make(chan struct{}),
		}
	})
	return manager
}

// GetManager returns the global manager instance.
func GetManager() *Manager {
	return manager
}

// GetQueue returns the managed queue.
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start launches the workers and the daily retention sweep.
func (m *Manager) Start() {
	m.queue.Start()

	m.retentionTicker = time.NewTicker(24 * time.Hour)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.stopCh:
				return
			case <-m.retentionTicker.C:
				if _, err := m.queue.EnqueueJob(JobTypeRetentionPurge, nil); err != nil {
					log.Errorf("[JobQueue] Failed to enqueue retention purge: %v", err)
				}
			}
		}
	}()
}

// Stop halts the ticker and drains the workers.
func (m *Manager) Stop() {
	if m.retentionTicker != nil {
		m.retentionTicker.Stop()
	}
	close(m.stopCh)
	m.wg.Wait()
	m.queue.Stop()
}
