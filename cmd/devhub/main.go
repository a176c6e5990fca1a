package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/aniketsonkar22/Dashboard.Report.Generation.Portal/internal/devhub"
	"github.com/aniketsonkar22/Dashboard.Report.Generation.Portal/internal/logger"
)

func main() {
	addr := flag.String("addr", ":5099", "listen address")
	seed := flag.Bool("seed", true, "serve a couple of fixture notifications")
	flag.Parse()

	zl, err := logger.New(true)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}

	srv := devhub.New(zl)
	if *seed {
		srv.Seed(
			&devhub.UserNotification{
				NotificationID: 1,
				Description:    "KPI assigned to your department",
				DepartmentID:   "d-100",
				KpiID:          "k-200",
				ActionType:     "AssignKpiToDepartment",
				UserID:         "u1",
				CreatedAt:      "2025-01-01T00:00:00Z",
			},
			&devhub.UserNotification{
				NotificationID: 2,
				Description:    "Quarterly targets locked",
				ActionType:     "KpiLock",
				UserID:         "u1",
				IsRead:         true,
				CreatedAt:      "2025-01-02T00:00:00Z",
			},
		)
	}

	zl.Info("devhub listening", zap.String("addr", *addr))
	if err := srv.Listen(*addr); err != nil {
		zl.Fatal("devhub exited", zap.Error(err))
	}
}
