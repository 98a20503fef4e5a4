package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"drillbi-quiz/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CourseLoader fetches course content from a backing store (e.g., postgres).
type CourseLoader interface {
	LoadCourse(ctx context.Context, name string) (domain.Course, error)
}

// CourseRepository caches courses with TTL to avoid repeated DB hits.
type CourseRepository struct {
	loader CourseLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedCourse
}

type cachedCourse struct {
	course    domain.Course
	expiresAt time.Time
}

func NewCourseRepository(loader CourseLoader, ttl time.Duration) *CourseRepository {
	return &CourseRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedCourse),
	}
}

func (r *CourseRepository) GetCourse(ctx context.Context, name string) (domain.Course, error) {
	if course, ok := r.cached(name); ok {
		return course, nil
	}

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		if course, ok := r.cached(name); ok {
			return course, nil
		}
		course, err := r.loader.LoadCourse(ctx, name)
		if err != nil {
			return domain.Course{}, err
		}

		r.mu.Lock()
		r.cache[name] = cachedCourse{
			course:    course,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return course, nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	return result.(domain.Course), nil
}

func (r *CourseRepository) cached(name string) (domain.Course, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[name]
	if !ok || !entry.expiresAt.After(now) {
		return domain.Course{}, false
	}
	return entry.course, true
}

// ttlWithJitterLocked adds up to 10% jitter to spread expirations. r.mu must be held.
func (r *CourseRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCourseLoader is a loader backed by an in-memory map (useful for tests/demos).
type StaticCourseLoader struct {
	courses map[string]domain.Course
}

func NewStaticCourseLoader(courses map[string]domain.Course) *StaticCourseLoader {
	return &StaticCourseLoader{courses: courses}
}

func (l *StaticCourseLoader) LoadCourse(_ context.Context, name string) (domain.Course, error) {
	if course, ok := l.courses[name]; ok {
		return course, nil
	}
	return domain.Course{}, domain.ErrCourseNotFound
}
