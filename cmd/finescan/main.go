// Command finescan runs one fine assessment pass over overdue loans and
// exits. It is meant to be started by cron or a scheduler.
package main

import (
	"context"
	"log"
	"time"

	"libraryms/pkg/circulation"
	"libraryms/pkg/config"
	"libraryms/pkg/database"
	"libraryms/pkg/notify"
)

func main() {
	cfg := config.Load()
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var notifier notify.Notifier = notify.Nop{}
	var publisher *notify.Publisher
	if cfg.AMQPURL != "" {
		publisher = notify.NewPublisher(cfg.AMQPURL, cfg.NotifyQueue)
		notifier = publisher
	}

	svc := circulation.NewService(db,
		circulation.WithPolicy(circulation.PolicyFromConfig(cfg)),
		circulation.WithNotifier(notifier),
	)
	report, err := svc.GenerateOrUpdateFines(ctx)
	if err != nil {
		log.Fatalf("Fine scan failed: %v", err)
	}
	log.Printf("Fine scan done: scanned=%d created=%d updated=%d skipped=%d",
		report.Scanned, report.Created, report.Updated, report.Skipped)

	if publisher != nil {
		if n := publisher.Pending(); n > 0 {
			log.Printf("%d notifications could not be delivered", n)
		}
		_ = publisher.Close()
	}
}
