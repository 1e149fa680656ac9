// Package sync implements offline queuing and deferred delivery for scrobble notifications.
package sync

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/vireo-cli/vireo/constant"
	"github.com/vireo-cli/vireo/where"
)

// Mutation encapsulates a single scrobble notification for deferred delivery.
type Mutation struct {
	Timestamp int64  `json:"timestamp"`
	Endpoint  string `json:"endpoint"`
	Payload   string `json:"payload"`
}

func queueFile() string {
	return filepath.Join(where.Config(), "failed_scrobbles.json")
}

// QueueFailure persists a failed scrobble notification to a local JSON-log for deferred reconciliation.
func QueueFailure(endpoint, payload string) error {
	f, err := os.OpenFile(queueFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	mutation := Mutation{
		Timestamp: time.Now().Unix(),
		Endpoint:  endpoint,
		Payload:   payload,
	}

	encoder := json.NewEncoder(f)
	return encoder.Encode(mutation)
}

// ReconcileFailures initializes an asynchronous background process to deliver previously failed scrobble notifications.
func ReconcileFailures() {
	go func() {
		path := queueFile()
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			return
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return
		}

		var mutations []Mutation
		decoder := json.NewDecoder(bytes.NewReader(content))
		for decoder.More() {
			var m Mutation
			if err := decoder.Decode(&m); err == nil {
				mutations = append(mutations, m)
			}
		}

		if len(mutations) == 0 {
			return
		}

		client := &http.Client{Timeout: 10 * time.Second}
		successCount := 0

		for i, m := range mutations {
			// Incremental delay with randomized jitter to manage request throttling.
			backoff := time.Duration((1<<i)*100)*time.Millisecond + time.Duration(rand.Intn(100))*time.Millisecond
			time.Sleep(backoff)

			req, err := http.NewRequest(http.MethodPost, m.Endpoint, bytes.NewBufferString(m.Payload))
			if err != nil {
				continue
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("User-Agent", constant.UserAgent)

			resp, err := client.Do(req)
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode < http.StatusBadRequest {
					successCount++
				}
			}
		}

		// Truncate the failure log only once every queued operation delivered.
		if successCount == len(mutations) {
			_ = os.Truncate(path, 0)
		}
	}()
}
