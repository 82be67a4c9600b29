package main

import (
	"context"
	"log"
	"os"

	"estateflow/db"
	"estateflow/disposition"
	"estateflow/lot"
	"estateflow/partner"
)

func main() {
	ctx := context.Background()

	connString := os.Getenv("DATABASE_URL")
	pool, err := db.NewPool(ctx, connString)
	if err != nil {
		log.Fatalf("bootstrap database pool: %v", err)
	}
	defer pool.Close()

	dispositionService := disposition.NewService(pool, disposition.NewRepository(pool), nil, nil)
	lotService := lot.NewService(lot.NewRepository(pool))

	searcher := partner.NewRemoteSearcher(os.Getenv("PARTNER_SEARCH_URL"), nil)
	partnerService := partner.NewService(searcher)

	log.Printf("disposition engine ready: disposition=%t lot=%t partner=%t",
		dispositionService != nil, lotService != nil, partnerService != nil)
}
