package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pfrederiksen/clt-events/internal/calendar"
	"github.com/pfrederiksen/clt-events/internal/event"
)

func main() {
	// Create a sample event
	start := time.Now().Add(72 * time.Hour).Truncate(time.Hour)
	url := "https://www.charlottesgotalot.com/events"
	evt := &event.Event{
		ID:            event.GenerateID("Free Jazz Night", "The Evening Muse", &start),
		Title:         "Free Jazz Night",
		Description:   "Local trio, no cover; doors at 7",
		StartDatetime: &start,
		Venue: event.Venue{
			Name:         "The Evening Muse",
			Address:      "3227 N Davidson St, Charlotte, NC",
			Neighborhood: "NoDa",
		},
		Category: []string{event.CategoryConcert, event.CategoryNightlife},
		Price:    event.Price{Min: event.Float(0), Currency: event.DefaultCurrency},
		URL:      &url,
		Source:   event.Source{Name: "Visit Charlotte", URL: url},
	}

	// Generate .ics file
	icsContent := calendar.GenerateICS([]*event.Event{evt}, calendar.DefaultName, time.Now())

	// Write to file (owner read/write only)
	filename := "test-clt-event.ics"
	if err := os.WriteFile(filename, []byte(icsContent), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated calendar file: %s\n\n", filename)
	fmt.Println("Test it by:")
	fmt.Println("1. Open the .ics file with your calendar app")
	fmt.Println("2. Or import it into Google Calendar, Apple Calendar, or Outlook")
	fmt.Println("\nFile contents preview:")
	fmt.Println("---")
	fmt.Println(icsContent)
}
