package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/northcampus/gradebook-backend/internal/data/repos"
	types "github.com/northcampus/gradebook-backend/internal/domain"
	"github.com/northcampus/gradebook-backend/internal/platform/dbctx"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
	"github.com/northcampus/gradebook-backend/internal/platform/postgres"
)

type fixtureFile struct {
	Courses []fixtureCourse `yaml:"courses"`
}

type fixtureCourse struct {
	Code        string          `yaml:"code"`
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Published   bool            `yaml:"published"`
	Modules     []fixtureModule `yaml:"modules"`
}

type fixtureModule struct {
	Title        string  `yaml:"title"`
	Weight       float64 `yaml:"weight"`
	Critical     bool    `yaml:"critical"`
	PassingScore int     `yaml:"passing_score"`
}

func main() {
	_ = godotenv.Load()

	seedPath := flag.String("seed", "", "YAML course fixture file to load after migrating")
	dryRun := flag.Bool("dry-run", false, "print the plan without touching the database")
	flag.Parse()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var fixtures fixtureFile
	if *seedPath != "" {
		data, err := os.ReadFile(*seedPath)
		if err != nil {
			log.Error("Reading seed file failed", "path", *seedPath, "error", err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(data, &fixtures); err != nil {
			log.Error("Parsing seed file failed", "path", *seedPath, "error", err)
			os.Exit(1)
		}
		if err := validateFixtures(fixtures); err != nil {
			log.Error("Seed file invalid", "path", *seedPath, "error", err)
			os.Exit(1)
		}
	}

	if *dryRun {
		for _, m := range types.AllModels() {
			log.Info("Would migrate", "model", fmt.Sprintf("%T", m))
		}
		for _, c := range fixtures.Courses {
			log.Info("Would seed course", "code", c.Code, "title", c.Title, "modules", len(c.Modules))
		}
		return
	}

	pg, err := postgres.New(postgres.FromEnv(), log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	if err := pg.AutoMigrateAll(); err != nil {
		log.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("Migration complete")

	if *seedPath == "" {
		return
	}
	if err := seed(log, pg, fixtures); err != nil {
		log.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
	log.Info("Seeding complete", "courses", len(fixtures.Courses))
}

func validateFixtures(f fixtureFile) error {
	seen := map[string]bool{}
	for _, c := range f.Courses {
		if c.Code == "" || c.Title == "" {
			return fmt.Errorf("course needs code and title: %+v", c)
		}
		if seen[c.Code] {
			return fmt.Errorf("duplicate course code %q", c.Code)
		}
		seen[c.Code] = true
		var total float64
		for _, m := range c.Modules {
			if m.Title == "" {
				return fmt.Errorf("course %s: module needs a title", c.Code)
			}
			if m.Weight < 0 {
				return fmt.Errorf("course %s: module %q has negative weight", c.Code, m.Title)
			}
			total += m.Weight
		}
		if len(c.Modules) > 0 && (total < 99.99 || total > 100.01) {
			return fmt.Errorf("course %s: module weights sum to %.2f, want 100", c.Code, total)
		}
	}
	return nil
}

func seed(log *logger.Logger, pg *postgres.Handle, fixtures fixtureFile) error {
	db := pg.DB()
	courseRepo := repos.NewCourseRepo(db, log)
	moduleRepo := repos.NewCourseModuleRepo(db, log)
	dbc := dbctx.Context{Ctx: context.Background()}

	for _, c := range fixtures.Courses {
		existing, err := courseRepo.GetByCode(dbc, c.Code)
		if err != nil {
			return fmt.Errorf("look up course %s: %w", c.Code, err)
		}
		if existing != nil {
			log.Info("Course already present, skipping", "code", c.Code)
			continue
		}

		created, err := courseRepo.Create(dbc, []*types.Course{{
			Code:        c.Code,
			Title:       c.Title,
			Description: c.Description,
			Published:   c.Published,
		}})
		if err != nil {
			return fmt.Errorf("create course %s: %w", c.Code, err)
		}
		course := created[0]

		rows := make([]*types.CourseModule, 0, len(c.Modules))
		for i, m := range c.Modules {
			passing := m.PassingScore
			if passing == 0 {
				passing = 70
			}
			rows = append(rows, &types.CourseModule{
				CourseID:     course.ID,
				Title:        m.Title,
				Position:     i,
				Weight:       m.Weight,
				Critical:     m.Critical,
				PassingScore: passing,
			})
		}
		if len(rows) > 0 {
			if _, err := moduleRepo.Create(dbc, rows); err != nil {
				return fmt.Errorf("create modules for %s: %w", c.Code, err)
			}
		}
		log.Info("Seeded course", "code", c.Code, "modules", len(rows))
	}
	return nil
}
