package models

import (
	"log"

	"bitbucket.org/contaflux/contabil_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Credential{},
		&Client{},
		&Company{},
		&ChartOfAccount{},
		&AccountingEntry{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
