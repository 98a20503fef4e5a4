package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"drillbi-quiz/internal/domain"
	"github.com/golang/glog"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CourseLoader fetches course content from a backing store (e.g., postgres).
type CourseLoader interface {
	LoadCourse(ctx context.Context, name string) (domain.Course, error)
}

// CourseRepository caches course documents in Redis and falls back to a
// loader on cache miss. Courses are stored as: SET quiz:course:{name} {json}
type CourseRepository struct {
	client *redis.Client
	loader CourseLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCourseRepository(client *redis.Client, loader CourseLoader, ttl time.Duration) *CourseRepository {
	return &CourseRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CourseRepository) GetCourse(ctx context.Context, name string) (domain.Course, error) {
	if course, ok := r.cached(ctx, name); ok {
		return course, nil
	}

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if course, ok := r.cached(ctx, name); ok {
			return course, nil
		}

		course, err := r.loader.LoadCourse(ctx, name)
		if err != nil {
			return domain.Course{}, err
		}

		raw, err := json.Marshal(course)
		if err == nil {
			err = r.client.Set(ctx, r.key(name), raw, r.ttlWithJitter()).Err()
		}
		if err != nil {
			glog.Warningf("cache course %s: %v", name, err)
		}
		return course, nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	return result.(domain.Course), nil
}

func (r *CourseRepository) cached(ctx context.Context, name string) (domain.Course, bool) {
	raw, err := r.client.Get(ctx, r.key(name)).Bytes()
	if err != nil {
		return domain.Course{}, false
	}
	var course domain.Course
	if err := json.Unmarshal(raw, &course); err != nil {
		glog.Warningf("discarding unreadable cached course %s: %v", name, err)
		return domain.Course{}, false
	}
	return course, true
}

func (r *CourseRepository) key(name string) string {
	return "quiz:course:" + name
}

func (r *CourseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
