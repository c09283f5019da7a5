// Command simulate drives a full game session against a running server. It
// connects one display and N controller connections over WebSocket, walks them
// through create/join/ready/steer/game-over/replay, and prints every event it
// receives. Useful for exercising the relay without a TV and a handful of
// phones.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	serverURL = flag.String("server", "ws://localhost:3000/ws", "WebSocket endpoint")
	players   = flag.Int("players", 3, "Number of controller connections")
	raceTime  = flag.Duration("race", 5*time.Second, "How long to steer before the display reports game over")
	replay    = flag.Bool("replay", false, "Vote for a replay after the race")
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// conn is one simulated client connection with a labeled read loop.
type conn struct {
	label string
	ws    *websocket.Conn
	// events carries every inbound event name, so the driver can block on a
	// specific one.
	events chan frame
}

func dial(label string) (*conn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: dial %s: %w", label, *serverURL, err)
	}

	c := &conn{label: label, ws: ws, events: make(chan frame, 64)}
	go c.readLoop()
	return c, nil
}

func (c *conn) readLoop() {
	defer close(c.events)
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			log.Printf("[%s] unparseable frame: %s", c.label, raw)
			continue
		}
		log.Printf("[%s] <- %s %s", c.label, f.Event, f.Data)
		select {
		case c.events <- f:
		default:
			// Reader fell behind; drop rather than stall the race.
		}
	}
}

func (c *conn) send(event string, data any) error {
	payload, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		return err
	}
	log.Printf("[%s] -> %s", c.label, event)
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// waitFor blocks until the named event arrives or the timeout passes.
func (c *conn) waitFor(event string, timeout time.Duration) (frame, error) {
	deadline := time.After(timeout)
	for {
		select {
		case f, ok := <-c.events:
			if !ok {
				return frame{}, fmt.Errorf("%s: connection closed waiting for %s", c.label, event)
			}
			if f.Event == event {
				return f, nil
			}
		case <-deadline:
			return frame{}, fmt.Errorf("%s: timed out waiting for %s", c.label, event)
		}
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	display, err := dial("display")
	if err != nil {
		log.Fatal(err)
	}
	defer display.ws.Close()

	if err := display.send("create_session", nil); err != nil {
		log.Fatal(err)
	}
	created, err := display.waitFor("session_created", 5*time.Second)
	if err != nil {
		log.Fatal(err)
	}
	var session struct {
		SessionCode string `json:"sessionCode"`
	}
	if err := json.Unmarshal(created.Data, &session); err != nil {
		log.Fatalf("bad session_created payload: %v", err)
	}
	code := session.SessionCode
	log.Printf("session %s created", code)

	controllers := make([]*conn, 0, *players)
	for i := 1; i <= *players; i++ {
		c, err := dial(fmt.Sprintf("phone-%d", i))
		if err != nil {
			log.Fatal(err)
		}
		defer c.ws.Close()

		if err := c.send("join_session", map[string]string{"sessionCode": code}); err != nil {
			log.Fatal(err)
		}
		if _, err := c.waitFor("lobby_joined", 5*time.Second); err != nil {
			log.Fatal(err)
		}
		controllers = append(controllers, c)
	}

	// Everyone readies up; the last vote starts the game.
	for _, c := range controllers {
		if err := c.send("player_ready", map[string]string{"sessionCode": code}); err != nil {
			log.Fatal(err)
		}
	}
	if _, err := display.waitFor("start_game_for_all", 5*time.Second); err != nil {
		log.Fatal(err)
	}
	log.Printf("race started, steering for %s", *raceTime)

	// Controllers stream steering input until the race window closes.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for _, c := range controllers {
		wg.Add(1)
		go func(c *conn) {
			defer wg.Done()
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					angle := rand.Float64()*2 - 1
					c.send("steer", map[string]any{"sessionCode": code, "angle": angle})
				}
			}
		}(c)
	}

	time.Sleep(*raceTime)
	close(stop)
	wg.Wait()

	score := float64(rand.Intn(10000)) / 10
	if err := display.send("game_over", map[string]any{"sessionCode": code, "score": score}); err != nil {
		log.Fatal(err)
	}
	if _, err := display.waitFor("game_over", 5*time.Second); err != nil {
		log.Fatal(err)
	}
	log.Printf("race over, score %.1f", score)

	if *replay {
		for _, c := range controllers {
			if err := c.send("request_replay", map[string]string{"sessionCode": code}); err != nil {
				log.Fatal(err)
			}
		}
		if _, err := display.waitFor("return_to_lobby", 5*time.Second); err != nil {
			log.Fatal(err)
		}
		log.Println("unanimous replay vote returned the session to the lobby")
	}

	log.Println("simulation complete")
}
