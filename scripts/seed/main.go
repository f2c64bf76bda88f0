package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/leaddesk/leaddesk/internal/app"
	"github.com/leaddesk/leaddesk/internal/leads"
	"github.com/leaddesk/leaddesk/internal/masterdata"
	"github.com/leaddesk/leaddesk/internal/platform/cache"
	"github.com/leaddesk/leaddesk/internal/platform/db"
	"github.com/leaddesk/leaddesk/internal/shared"
	"github.com/leaddesk/leaddesk/internal/users"
)

var (
	seedCities     = []string{"Pune", "Mumbai", "Nagpur", "Nashik"}
	seedCategories = []string{"Retail", "Clinic", "Restaurant", "Salon", "Gym"}
	seedSources    = []string{"Walk-in", "Referral", "Website", "Cold Call"}
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping seed")
		return
	}

	count := flag.Int("leads", 50, "number of fake leads to insert")
	password := flag.String("password", "leaddesk123", "password for the seeded users")
	seed := flag.Int64("seed", 0, "faker seed, 0 for random")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	ctx := context.Background()

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if applied, err := db.Migrate(ctx, pool); err != nil {
		logger.Error("migrate schema", slog.Any("error", err))
		os.Exit(1)
	} else if applied > 0 {
		logger.Info("schema migrated", slog.Int("applied", applied))
	}

	faker := gofakeit.New(*seed)
	lookups := masterdata.NewService(masterdata.NewRepository(pool), cache.NewVersioned(nil, "lookups", 0), logger)
	people := users.NewService(users.NewRepository(pool), cache.NewVersioned(nil, "users", 0), logger)

	ids := map[masterdata.Kind][]int64{}
	for kind, names := range map[masterdata.Kind][]string{
		masterdata.KindCity:     seedCities,
		masterdata.KindCategory: seedCategories,
		masterdata.KindSource:   seedSources,
	} {
		for _, name := range names {
			l, err := lookups.Create(ctx, kind, masterdata.LookupRequest{Name: name})
			if err != nil {
				var fe shared.FieldErrors
				if errors.As(err, &fe) {
					continue
				}
				logger.Error("seed lookup", slog.String("kind", string(kind)), slog.Any("error", err))
				os.Exit(1)
			}
			ids[kind] = append(ids[kind], l.ID)
		}
	}
	if len(ids[masterdata.KindCity]) == 0 || len(ids[masterdata.KindCategory]) == 0 || len(ids[masterdata.KindSource]) == 0 {
		logger.Error("lookups already seeded, run against an empty database")
		os.Exit(1)
	}

	byDesignation := map[shared.Designation]users.User{}
	for _, d := range []shared.Designation{
		shared.DesignationAdmin,
		shared.DesignationTelecaller,
		shared.DesignationBDE,
		shared.DesignationDigitalMarketer,
	} {
		u, err := people.CreateUser(ctx, users.CreateUserRequest{
			Name:        faker.Name(),
			Email:       fmt.Sprintf("%s@leaddesk.local", slug(d)),
			Mobile:      faker.Numerify("9#########"),
			Password:    *password,
			Designation: string(d),
			CityIDs:     ids[masterdata.KindCity][:1],
		})
		if err != nil {
			logger.Error("seed user", slog.String("designation", string(d)), slog.Any("error", err))
			os.Exit(1)
		}
		byDesignation[d] = u
	}

	repo := leads.NewRepository(pool)
	var statuses []leads.Status
	for _, st := range leads.Statuses() {
		// Visited is only reachable through a BDE visit with a result.
		if st != leads.StatusVisited {
			statuses = append(statuses, st)
		}
	}
	creators := []users.User{byDesignation[shared.DesignationTelecaller], byDesignation[shared.DesignationBDE], byDesignation[shared.DesignationDigitalMarketer]}
	bde := byDesignation[shared.DesignationBDE].ID
	inserted := 0
	for i := 0; i < *count; i++ {
		creator := creators[faker.Number(0, len(creators)-1)]
		lead := leads.Lead{
			Name:          faker.Company(),
			ContactPerson: faker.Name(),
			Mobile:        faker.Numerify("8#########"),
			Remarks:       faker.Sentence(8),
			CityID:        pick(faker, ids[masterdata.KindCity]),
			CategoryID:    pick(faker, ids[masterdata.KindCategory]),
			SourceID:      pick(faker, ids[masterdata.KindSource]),
			Status:        statuses[faker.Number(0, len(statuses)-1)],
			LeadBy:        creator.ID,
			CreatedBy:     creator.ID,
		}
		switch lead.Status {
		case leads.StatusAppointmentGenerated:
			at := upcoming(faker)
			lead.AppointmentDate = &at
			lead.AppointTo = &bde
		case leads.StatusFollowup:
			at := upcoming(faker)
			lead.FollowUpDate = &at
		}
		if _, err := repo.Create(ctx, lead); err != nil {
			if errors.Is(err, leads.ErrDuplicateMobile) {
				continue
			}
			logger.Error("seed lead", slog.Any("error", err))
			os.Exit(1)
		}
		inserted++
	}

	logger.Info("seed complete", slog.Int("users", len(byDesignation)), slog.Int("leads", inserted))
	for d, u := range byDesignation {
		fmt.Printf("%-17s %s\n", d, u.Email)
	}
}

func pick(f *gofakeit.Faker, ids []int64) int64 {
	return ids[f.Number(0, len(ids)-1)]
}

// upcoming returns a wall-clock time within the next two weeks on a quarter hour.
func upcoming(f *gofakeit.Faker) time.Time {
	day := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, f.Number(0, 14))
	return day.Add(time.Duration(f.Number(36, 76)) * 15 * time.Minute)
}

func slug(d shared.Designation) string {
	switch d {
	case shared.DesignationDigitalMarketer:
		return "marketer"
	case shared.DesignationTelecaller:
		return "telecaller"
	case shared.DesignationBDE:
		return "bde"
	default:
		return "admin"
	}
}
