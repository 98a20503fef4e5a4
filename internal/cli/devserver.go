package cli

import (
	"context"
	"time"

	"drillbi-quiz/internal/auth"
	"drillbi-quiz/internal/config"
	"drillbi-quiz/internal/infra/memory"
	pgloader "drillbi-quiz/internal/infra/postgres"
	rediscache "drillbi-quiz/internal/infra/redis"
	"drillbi-quiz/internal/quizservice"
	transport "drillbi-quiz/internal/transport/http"
	"github.com/golang/glog"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewDevserverCmd runs a local stand-in for the remote quiz service.
func NewDevserverCmd(configPath *string) *cobra.Command {
	var (
		port string
		seed bool
	)
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Serve the quiz API locally with sample or postgres course content",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if port == "" {
				port = cfg.Devserver.Port
			}
			return runDevserver(cmd.Context(), cfg, port, seed)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "port to listen on (defaults to devserver.port)")
	cmd.Flags().BoolVar(&seed, "seed", false, "write the sample courses to postgres before serving")
	return cmd
}

func runDevserver(ctx context.Context, cfg config.Config, port string, seed bool) error {
	var loader memory.CourseLoader = memory.NewStaticCourseLoader(quizservice.SampleCourses())
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		pg := pgloader.NewCourseLoader(pool)
		if seed {
			for _, course := range quizservice.SampleCourses() {
				if err := pg.SaveCourse(ctx, course); err != nil {
					return err
				}
				glog.Infof("seeded course %s", course.Name)
			}
		}
		loader = pg
	}

	courseTTL := config.TTLDuration(cfg.Course.TTL, 10*time.Minute)
	var courses quizservice.CourseRepository
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		courses = rediscache.NewCourseRepository(client, loader, courseTTL)
	} else {
		courses = memory.NewCourseRepository(loader, courseTTL)
	}

	service := quizservice.NewService(courses, memory.NewAttemptStore(), quizservice.StaticExplainer{})
	signer := auth.NewSigner(cfg.Devserver.Secret, config.TTLDuration(cfg.Devserver.TokenTTL, 24*time.Hour))
	router := transport.NewAPIRouter(transport.NewAPIHandler(service), signer, cfg.Server.Origins)
	return listen(ctx, port, router)
}
