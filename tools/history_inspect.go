package main

import (
	"chat-relay/contract"
	"chat-relay/internal"
	"chat-relay/repositories"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	room := flag.String("room", "", "Room to print, every room when empty")
	limit := flag.Int("limit", 0, "Newest entries per room, 0 for all")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	histories := repositories.NewHistoryRepository(db, logs.GetLoggerFromLevel(slog.LevelWarn))
	rooms := []string{*room}
	if *room == "" {
		if rooms, err = histories.Rooms(); err != nil {
			log.Fatal(err)
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Room", "Key", "Time", "User", "Message", "Size"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, name := range rooms {
		entries, err := histories.ForRoom(name).List(context.Background(), contract.ListOptions{Reverse: *limit > 0, Limit: *limit})
		if err != nil {
			log.Fatalf("Reading room %s: %v", name, err)
		}
		// Newest-first reads are flipped back to chronological order
		if *limit > 0 {
			for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
		for _, entry := range entries {
			row := internal.HistoryMapper(entry)
			table.Append([]string{name, row.Key, row.Timestamp, row.UserName, row.Message, strconv.Itoa(row.Size)})
		}
	}

	table.Render()
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		// A database left open by a crashed relay must be opened once in write mode
		if strings.Contains(err.Error(), "Log truncate required") {
			fmt.Println("Log truncate required, repairing...")
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			_ = db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
