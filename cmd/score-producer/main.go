package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
)

// ScoreAdjustment mirrors the consumer's message format: one score change for
// one participant in one activity (or sub-game) of a board.
type ScoreAdjustment struct {
	BoardID       string   `json:"board_id"`
	ActivityID    string   `json:"activity_id"`
	SubGameID     string   `json:"sub_game_id,omitempty"`
	ParticipantID string   `json:"participant_id"`
	Delta         float64  `json:"delta,omitempty"`
	Set           *float64 `json:"set,omitempty"`
}

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "scoreboard-events", "Kafka topic")
	boardID := flag.String("board", "", "Board ID to target (required)")
	activityIDs := flag.String("activities", "", "Activity IDs (comma-separated, required)")
	participantIDs := flag.String("participants", "", "Participant IDs (comma-separated, required)")
	rate := flag.Int("rate", 5, "Adjustments per second")
	maxDelta := flag.Int("max-delta", 10, "Maximum points per adjustment")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	if *boardID == "" || *activityIDs == "" || *participantIDs == "" {
		flag.Usage()
		os.Exit(1)
	}

	brokerList := strings.Split(*brokers, ",")
	activities := strings.Split(*activityIDs, ",")
	participants := strings.Split(*participantIDs, ",")

	fmt.Println("Scoreboard event producer")
	fmt.Printf("  Brokers:       %s\n", *brokers)
	fmt.Printf("  Topic:         %s\n", *topic)
	fmt.Printf("  Board:         %s\n", *boardID)
	fmt.Printf("  Activities:    %d\n", len(activities))
	fmt.Printf("  Participants:  %d\n", len(participants))
	fmt.Printf("  Rate:          %d/sec\n", *rate)
	fmt.Println()

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	// Create producer
	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	// Handle producer errors and successes
	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	// Send message helper; messages are keyed by board id so one board's
	// adjustments stay on one partition and apply in order.
	sendAdjustment := func(adj ScoreAdjustment) {
		data, err := json.Marshal(adj)
		if err != nil {
			log.Printf("Failed to marshal message: %v", err)
			return
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(adj.BoardID),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-done:
			return
		}
	}

	interval := time.Second / time.Duration(*rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var sent int64
	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			close(done)
			producer.AsyncClose()
			wg.Wait()
			fmt.Printf("Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
			return

		case <-statsTicker.C:
			fmt.Printf("  sent=%d ok=%d errors=%d\n", sent,
				atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))

		case <-ticker.C:
			if !endTime.IsZero() && time.Now().After(endTime) {
				fmt.Println("\nDuration elapsed")
				close(done)
				producer.AsyncClose()
				wg.Wait()
				fmt.Printf("Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
				return
			}

			sendAdjustment(ScoreAdjustment{
				BoardID:       *boardID,
				ActivityID:    activities[rand.Intn(len(activities))],
				ParticipantID: participants[rand.Intn(len(participants))],
				Delta:         float64(rand.Intn(*maxDelta) + 1),
			})
			sent++
		}
	}
}
