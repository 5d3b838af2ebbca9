// Command feedsim serves a mock live hazard feed over websocket for local
// development. Clients connect, send a subscribe message, and receive
// new_content envelopes at a fixed interval, cycling through a set of
// synthetic coastal hazard items. Point LIVE_FEED_URL at it to exercise the
// service's live delivery path, including reconnect behavior via -drop-after.
//
// Usage:
//
//	go run ./cmd/feedsim -addr :9090 -interval 5s
//	LIVE_FEED_URL=ws://localhost:9090/feed go run ./cmd/hazardintel
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
)

var samples = []domain.RawItem{
	{
		Source:     "feedsim",
		Author:     "@marina_watch",
		Text:       "High waves crashing over the promenade at Marina Beach, water reaching the road",
		Location:   &domain.Geo{Lat: 13.05, Lon: 80.28},
		Engagement: domain.Engagement{Likes: 42, Shares: 11, Comments: 7, Known: true},
	},
	{
		Source:   "feedsim",
		Author:   "@vizag_alerts",
		Text:     "Cyclone warning issued for the Visakhapatnam coast, fishermen advised not to venture out",
		Location: &domain.Geo{Lat: 17.69, Lon: 83.22},
	},
	{
		Source:    "feedsim",
		Author:    "@kochi_resident",
		Text:      "Severe flooding near the harbour, several streets underwater",
		PlaceHint: "Fort Kochi",
	},
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	interval := flag.Duration("interval", 5*time.Second, "delay between items")
	dropAfter := flag.Int("drop-after", 0, "close the connection after N items (0 = never), to exercise client reconnect")
	flag.Parse()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	http.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var sub struct {
			Type   string   `json:"type"`
			Topics []string `json:"topics"`
		}
		if err := conn.ReadJSON(&sub); err != nil {
			log.Printf("read subscribe: %v", err)
			return
		}
		log.Printf("client subscribed to %v", sub.Topics)

		for i := 0; ; i++ {
			if *dropAfter > 0 && i == *dropAfter {
				log.Printf("dropping connection after %d items", i)
				return
			}

			item := samples[i%len(samples)]
			now := time.Now().UTC()
			item.ID = fmt.Sprintf("feedsim-%d", now.UnixNano())
			item.Timestamp = now

			payload, err := json.Marshal(map[string]any{
				"type": "new_content",
				"item": item,
			})
			if err != nil {
				log.Printf("marshal item: %v", err)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("client gone: %v", err)
				return
			}
			time.Sleep(*interval)
		}
	})

	log.Printf("mock live feed listening on %s/feed", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}
