package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/chakula/core"
	logsvc "github.com/trezcool/chakula/services/logger"
	"github.com/trezcool/chakula/storage/database"
	"github.com/trezcool/chakula/storage/database/sqlxrepos"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil && err != errHelp {
		logger.Error(fmt.Sprintf("\nerror: %v\n", err), err)
	}
	_ = logger.Close()
	if err != nil {
		os.Exit(1)
	}
}
