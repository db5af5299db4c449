package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/fieldledger/FieldLedger/internal/pkg/cache"
)

const (
	// Redis key prefixes
	JobKeyPrefix     = "job:"
	JobQueueKey      = "job_queue"
	JobProcessingKey = "job_processing"

	// Job settings
	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour // Jobs expire after 24 hours
)

// Processor handles jobs of the types it declares via CanProcess.
type Processor interface {
	CanProcess(t JobType) bool
	Process(ctx context.Context, job *Job) error
}

// Queue manages background jobs using Redis
type Queue struct {
	client     *redis.Client
	workers    int
	processors []Processor
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

// NewQueue creates a new job queue
func NewQueue(workers int) *Queue {
	if workers <= 0 {
		workers = 3 // Default number of workers
	}

	return &Queue{
		client:  cache.GetClient(),
		workers: workers,
		stopCh:  make(chan struct{}),
	}
}

// RegisterProcessor adds a processor consulted by the workers.
func (q *Queue) RegisterProcessor(p Processor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processors = append(q.processors, p)
}

// Start starts the job queue workers
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.running = true
	q.stopCh = make(chan struct{})
	log.Infof("[JobQueue] Starting %d workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop stops the job queue workers
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	log.Info("[JobQueue] Stopping workers...")
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	log.Info("[JobQueue] All workers stopped")
}

// Enqueue persists a job and pushes its ID onto the work queue.
func (q *Queue) Enqueue(job *Job) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	if job.MaxRetries <= 0 {
		job.MaxRetries = DefaultMaxRetries
	}
	job.Status = JobStatusPending

	ctx := context.Background()
	if err := q.saveJob(ctx, job); err != nil {
		return err
	}
	if err := q.client.LPush(ctx, JobQueueKey, job.ID).Err(); err != nil {
		return fmt.Errorf("push job %s: %w", job.ID, err)
	}

	log.Debugf("[JobQueue] Enqueued job %s (%s)", job.ID, job.Type)
	return nil
}

func (q *Queue) saveJob(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err(); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			log.Debugf("[JobQueue] Worker %d stopping", id)
			return
		default:
		}

		jobID, err := q.client.BRPopLPush(ctx, JobQueueKey, JobProcessingKey, 1*time.Second).Result()
		if err != nil {
			if err != redis.Nil {
				log.Errorf("[JobQueue] Worker %d pop error: %v", id, err)
				time.Sleep(1 * time.Second)
			}
			continue
		}

		q.processJob(ctx, jobID)
		_ = q.client.LRem(ctx, JobProcessingKey, 1, jobID).Err()
	}
}

func (q *Queue) processJob(ctx context.Context, jobID string) {
	data, err := q.client.Get(ctx, JobKeyPrefix+jobID).Result()
	if err != nil {
		if err != redis.Nil {
			log.Errorf("[JobQueue] Get job %s: %v", jobID, err)
		}
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		log.Errorf("[JobQueue] Unmarshal job %s: %v", jobID, err)
		return
	}

	processor := q.findProcessor(job.Type)
	if processor == nil {
		log.Errorf("[JobQueue] No processor registered for job type %s", job.Type)
		q.markJob(ctx, &job, JobStatusFailed, "no processor for job type")
		return
	}

	job.Status = JobStatusProcessing
	now := time.Now()
	job.ProcessedAt = &now
	_ = q.saveJob(ctx, &job)

	if err := processor.Process(ctx, &job); err != nil {
		job.Retries++
		if job.Retries < job.MaxRetries {
			log.Warnf("[JobQueue] Job %s failed (attempt %d/%d), requeueing: %v", job.ID, job.Retries, job.MaxRetries, err)
			q.markJob(ctx, &job, JobStatusPending, err.Error())
			_ = q.client.LPush(ctx, JobQueueKey, job.ID).Err()
			return
		}
		log.Errorf("[JobQueue] Job %s failed permanently after %d attempts: %v", job.ID, job.Retries, err)
		q.markJob(ctx, &job, JobStatusFailed, err.Error())
		return
	}

	q.markJob(ctx, &job, JobStatusCompleted, "")
	log.Debugf("[JobQueue] Job %s completed", job.ID)
}

func (q *Queue) markJob(ctx context.Context, job *Job, status JobStatus, lastError string) {
	job.Status = status
	job.LastError = lastError
	if err := q.saveJob(ctx, job); err != nil {
		log.Errorf("[JobQueue] Save job %s: %v", job.ID, err)
	}
}

func (q *Queue) findProcessor(t JobType) Processor {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, p := range q.processors {
		if p.CanProcess(t) {
			return p
		}
	}
	return nil
}
