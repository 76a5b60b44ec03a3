// Package main provides the player control CLI.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/tunebox/internal/api/connect"
	"github.com/osa030/tunebox/internal/domain/track"
)

var (
	app    = kingpin.New("tunebox-playerctl", "tunebox player control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Control token (or set CONTROL_TOKEN env)").Envar("CONTROL_TOKEN").String()

	// catalog commands
	searchCmd   = app.Command("search", "Search the catalog")
	searchQuery = searchCmd.Arg("query", "Search query").Required().String()
	songCmd     = app.Command("song", "Show a catalog track")
	songID      = songCmd.Arg("track-id", "Track ID").Required().String()

	// queue commands
	playCmd    = app.Command("play", "Play a track now")
	playID     = playCmd.Arg("track-id", "Track ID").Required().String()
	enqueueCmd = app.Command("enqueue", "Add a track to the queue").Alias("add")
	enqueueID  = enqueueCmd.Arg("track-id", "Track ID").Required().String()
	removeCmd  = app.Command("remove", "Remove a track from the queue").Alias("rm")
	removeID   = removeCmd.Arg("track-id", "Track ID").Required().String()
	upCmd      = app.Command("up", "Move a queue entry up")
	upIndex    = upCmd.Arg("index", "Queue index (0-based)").Required().Int()
	downCmd    = app.Command("down", "Move a queue entry down")
	downIndex  = downCmd.Arg("index", "Queue index (0-based)").Required().Int()
	clearCmd   = app.Command("clear", "Clear the queue")
	queueCmd   = app.Command("queue", "Show the queue").Alias("list")

	// transport commands
	nextCmd    = app.Command("next", "Play the next track")
	prevCmd    = app.Command("prev", "Play the previous track")
	toggleCmd  = app.Command("toggle", "Pause or resume playback")
	stopCmd    = app.Command("stop", "Stop playback")
	seekCmd    = app.Command("seek", "Seek within the current track")
	seekPos    = seekCmd.Arg("position", "Position (e.g. 1m30s)").Required().Duration()
	shuffleCmd = app.Command("shuffle", "Set shuffle")
	shuffleOn  = shuffleCmd.Arg("state", "on or off").Required().Enum("on", "off")
	repeatCmd  = app.Command("repeat", "Set repeat mode")
	repeatMode = repeatCmd.Arg("mode", "off, all, one or cycle").Default("cycle").Enum("off", "all", "one", "cycle")

	// state commands
	stateCmd     = app.Command("state", "Show player state").Alias("status")
	subscribeCmd = app.Command("subscribe", "Subscribe to state updates")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewClient(
		http.DefaultClient,
		*server,
		connect.WithInterceptors(apiconnect.NewTokenInterceptor(*token)),
	)

	ctx := context.Background()

	var err error
	switch command {
	case searchCmd.FullCommand():
		err = search(ctx, client, *searchQuery)
	case songCmd.FullCommand():
		err = song(ctx, client, *songID)
	case playCmd.FullCommand():
		err = printState(client.PlayTrack(ctx, *playID))
	case enqueueCmd.FullCommand():
		err = printResult(client.Enqueue(ctx, *enqueueID))("Queued", "Already in queue")
	case removeCmd.FullCommand():
		err = printResult(client.RemoveFromQueue(ctx, *removeID))("Removed", "Not in queue")
	case upCmd.FullCommand():
		err = printResult(client.MoveUp(ctx, *upIndex))("Moved", "Cannot move")
	case downCmd.FullCommand():
		err = printResult(client.MoveDown(ctx, *downIndex))("Moved", "Cannot move")
	case clearCmd.FullCommand():
		if err = client.ClearQueue(ctx); err == nil {
			fmt.Println("Queue cleared")
		}
	case queueCmd.FullCommand():
		err = showQueue(ctx, client)
	case nextCmd.FullCommand():
		err = printResult(client.Next(ctx))("Skipped", "Nothing to play next")
	case prevCmd.FullCommand():
		err = printResult(client.Previous(ctx))("Went back", "Nothing to play before")
	case toggleCmd.FullCommand():
		err = printState(client.TogglePlayPause(ctx))
	case stopCmd.FullCommand():
		if err = client.Stop(ctx); err == nil {
			fmt.Println("Stopped")
		}
	case seekCmd.FullCommand():
		if err = client.Seek(ctx, *seekPos); err == nil {
			fmt.Printf("Seeked to %s\n", *seekPos)
		}
	case shuffleCmd.FullCommand():
		err = printState(client.SetShuffle(ctx, *shuffleOn == "on"))
	case repeatCmd.FullCommand():
		err = printState(client.SetRepeat(ctx, *repeatMode))
	case stateCmd.FullCommand():
		err = printState(client.GetState(ctx))
	case subscribeCmd.FullCommand():
		err = subscribe(ctx, client)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func search(ctx context.Context, client *apiconnect.Client, query string) error {
	tracks, err := client.Search(ctx, query)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		fmt.Println("No results")
		return nil
	}
	for _, t := range tracks {
		fmt.Printf("  %-12s %s - %s (%s)\n", t.ID, t.Name, t.Artists, formatDuration(t.Duration))
	}
	return nil
}

func song(ctx context.Context, client *apiconnect.Client, id string) error {
	t, err := client.GetSong(ctx, id)
	if err != nil {
		return err
	}
	printTrack(t)
	return nil
}

func showQueue(ctx context.Context, client *apiconnect.Client) error {
	tracks, err := client.GetQueue(ctx)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		fmt.Println("Queue is empty")
		return nil
	}
	for i, t := range tracks {
		fmt.Printf("%3d. %s - %s [%s]\n", i, t.Name, t.Artists, t.ID)
	}
	return nil
}

func subscribe(ctx context.Context, client *apiconnect.Client) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Subscribed to updates. Press Ctrl+C to exit.")

	err := client.Subscribe(ctx, func(u apiconnect.Update) {
		fmt.Printf("\n[Sequence: %d] === %s ===\n", u.SequenceNo, u.Event)
		printPlayerState(&u.State)
	})
	if ctx.Err() != nil {
		fmt.Println("\nUnsubscribing...")
		return nil
	}
	return err
}

// printResult prints one of two messages depending on a boolean response.
func printResult(ok bool, err error) func(yes, no string) error {
	return func(yes, no string) error {
		if err != nil {
			return err
		}
		if ok {
			fmt.Println(yes)
		} else {
			fmt.Println(no)
		}
		return nil
	}
}

func printState(st *apiconnect.PlayerState, err error) error {
	if err != nil {
		return err
	}
	printPlayerState(st)
	return nil
}

func printPlayerState(st *apiconnect.PlayerState) {
	switch {
	case st.Current == nil:
		fmt.Println("⏹  Nothing selected")
	case st.Playing:
		fmt.Println("▶️  Playing")
	default:
		fmt.Println("⏸  Paused")
	}
	if st.Current != nil {
		printTrack(st.Current)
		fmt.Printf("  Position: %s / %s\n",
			formatDuration(time.Duration(st.PositionMs)*time.Millisecond),
			formatDuration(time.Duration(st.DurationMs)*time.Millisecond))
	}
	fmt.Printf("  Shuffle: %v  Repeat: %s  Queue: %d tracks\n", st.Shuffle, st.Repeat, len(st.Queue))
}

func printTrack(t *track.Track) {
	fmt.Printf("  Track ID: %s\n", t.ID)
	fmt.Printf("  Name: %s\n", t.Name)
	fmt.Printf("  Artists: %s\n", t.Artists)
	if t.Album != "" {
		fmt.Printf("  Album: %s\n", t.Album)
	}
	if t.Duration > 0 {
		fmt.Printf("  Duration: %s\n", formatDuration(t.Duration))
	}
	if url := t.ImageURL(); url != "" {
		fmt.Printf("  Artwork: %s\n", url)
	}
	if t.Source != "" {
		fmt.Printf("  Source: %s\n", t.Source)
	}
}

// formatDuration formats d as m:ss.
func formatDuration(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
