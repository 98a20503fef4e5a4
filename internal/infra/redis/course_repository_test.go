package redis

import (
	"context"
	"testing"
	"time"

	"drillbi-quiz/internal/domain"
	"drillbi-quiz/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCourseRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		CourseLoader: memory.NewStaticCourseLoader(map[string]domain.Course{
			"algebra1": sampleCourse(),
		}),
	}
	repo := NewCourseRepository(newClient(mr), loader, time.Minute)

	course, err := repo.GetCourse(context.Background(), "algebra1")
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:course:algebra1") {
		t.Fatalf("expected course cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := repo.GetCourse(context.Background(), "algebra1")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached.Questions) != len(course.Questions) {
		t.Fatalf("cached course lost questions: %+v", cached)
	}
	if opt, ok := cached.Questions[0].CorrectOption(); !ok || opt.Label != "B" {
		t.Fatalf("cached course lost correct flags: %+v", cached.Questions[0])
	}
}

func TestCourseRepositoryReloadsAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		CourseLoader: memory.NewStaticCourseLoader(map[string]domain.Course{"algebra1": sampleCourse()}),
	}
	repo := NewCourseRepository(newClient(mr), loader, time.Minute)

	_, _ = repo.GetCourse(context.Background(), "algebra1")
	mr.FastForward(2 * time.Minute)
	_, _ = repo.GetCourse(context.Background(), "algebra1")

	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.CourseLoader
	calls int
}

func (l *countingLoader) LoadCourse(ctx context.Context, name string) (domain.Course, error) {
	l.calls++
	return l.CourseLoader.LoadCourse(ctx, name)
}

func sampleCourse() domain.Course {
	return domain.Course{
		Name: "algebra1",
		Questions: []domain.Question{
			{
				Number: 1,
				Text:   "What is 2 + 2?",
				Options: []domain.Option{
					{Label: "A", Text: "3"},
					{Label: "B", Text: "4", IsCorrect: true},
				},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
