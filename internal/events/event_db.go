// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package events

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

func open(dbFilePath string) (*sql.DB, func(), error) {
	db, err := sql.Open("sqlite", dbFilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Err(closeErr).Msgf("failed to close database")
		}
	}, nil
}

func CreateEventsTable(dbFilePath string) error {
	db, closeDB, err := open(dbFilePath)
	if err != nil {
		return err
	}
	defer closeDB()

	_, err = db.Exec("CREATE TABLE IF NOT EXISTS bmc_events(id INTEGER PRIMARY KEY, correlation_id TEXT NOT NULL, json_string TEXT NOT NULL);")
	if err != nil {
		return fmt.Errorf("failed to create bmc_events table: %w", err)
	}

	return nil
}

func SaveEvent(dbFilePath string, event *BmcUpdateEvent) error {
	db, closeDB, err := open(dbFilePath)
	if err != nil {
		return err
	}
	defer closeDB()

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event to JSON: %w", err)
	}

	_, err = db.Exec("INSERT INTO bmc_events (correlation_id, json_string) VALUES (?, ?);",
		event.Event.CorrelationId, string(eventJSON))
	if err != nil {
		return fmt.Errorf("failed to insert event into bmc_events: %w", err)
	}

	return nil
}

// DeleteEvents drops every event up to and including maxId.
func DeleteEvents(dbFilePath string, maxId int) error {
	db, closeDB, err := open(dbFilePath)
	if err != nil {
		return err
	}
	defer closeDB()

	_, err = db.Exec("DELETE FROM bmc_events WHERE id <= ?;", maxId)
	if err != nil {
		return fmt.Errorf("failed to delete event from bmc_events: %w", err)
	}

	return nil
}

// GetEvents returns the stored events in insertion order together with the
// highest row id, or -1 when the journal is empty. correlationId restricts the
// result to one update when not empty.
func GetEvents(dbFilePath string, correlationId string) ([]BmcUpdateEvent, int, error) {
	db, closeDB, err := open(dbFilePath)
	if err != nil {
		return nil, -1, err
	}
	defer closeDB()

	var rows *sql.Rows
	if correlationId == "" {
		rows, err = db.Query("SELECT id, json_string FROM bmc_events ORDER BY id;")
	} else {
		rows, err = db.Query("SELECT id, json_string FROM bmc_events WHERE correlation_id = ? ORDER BY id;", correlationId)
	}
	if err != nil {
		return nil, -1, fmt.Errorf("failed to select events: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Err(closeErr).Msgf("failed to close rows")
		}
	}()

	maxId := -1
	var eventsList []BmcUpdateEvent
	for rows.Next() {
		var eventData string
		var id int
		if err := rows.Scan(&id, &eventData); err != nil {
			return nil, -1, fmt.Errorf("failed to scan event data: %w", err)
		}

		var event BmcUpdateEvent
		if err := json.Unmarshal([]byte(eventData), &event); err != nil {
			return nil, -1, fmt.Errorf("failed to unmarshal event data: %w", err)
		}

		if maxId < id {
			maxId = id
		}
		eventsList = append(eventsList, event)
	}

	if err := rows.Err(); err != nil {
		return nil, -1, fmt.Errorf("error iterating over rows: %w", err)
	}

	return eventsList, maxId, nil
}

// Journal records update events into the sqlite database at DbFilePath.
type Journal struct {
	DbFilePath string
}

func NewJournal(dbFilePath string) (*Journal, error) {
	if err := CreateEventsTable(dbFilePath); err != nil {
		return nil, err
	}
	return &Journal{DbFilePath: dbFilePath}, nil
}

func (j *Journal) Record(eventType EventTypeValue, evt BmcEvent) error {
	e := NewEvent(eventType, evt)
	log.Debug().Str("type", string(eventType)).Str("correlation", evt.CorrelationId).Msg("recording event")
	return SaveEvent(j.DbFilePath, e)
}
