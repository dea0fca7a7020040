package service

import (
	"encoding/json"
	"log"
	"time"
)

// logEvent emits one JSON object per line, matching the request logger's
// output shape so service events and access logs interleave cleanly.
func logEvent(fields map[string]any) {
	fields["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	if _, ok := fields["level"]; !ok {
		fields["level"] = "info"
	}

	b, err := json.Marshal(fields)
	if err != nil {
		log.Printf("failed to marshal service log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
