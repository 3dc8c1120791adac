package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/CheekyEntity/Chrono-Rewind/internal/rewind"

	"github.com/fogleman/gg"
)

// traceviz renders an entity's retained movement history to a PNG so recall
// behavior can be eyeballed: the trail fades with age, vitality tints the
// markers, and the oldest snapshot (the usual recall target) is ringed.

const (
	canvasWidth  = 1280
	canvasHeight = 720
	margin       = 60.0
)

type historyResponse struct {
	EntityID  string            `json:"entityId"`
	Snapshots []rewind.Snapshot `json:"snapshots"`
	Count     int               `json:"count"`
}

func main() {
	server := flag.String("server", "http://localhost:3000", "Arena API base URL")
	entity := flag.String("entity", "bot-1", "Entity ID to render")
	out := flag.String("out", "trace.png", "Output PNG path")
	flag.Parse()

	history, err := fetchHistory(*server, *entity)
	if err != nil {
		log.Fatalf("❌ Failed to fetch history: %v", err)
	}
	if len(history.Snapshots) < 2 {
		log.Fatalf("❌ Not enough history to render (%d snapshots)", len(history.Snapshots))
	}

	dc := gg.NewContext(canvasWidth, canvasHeight)
	drawBackground(dc)
	drawGrid(dc)
	drawTrail(dc, history.Snapshots)
	drawLegend(dc, history)

	if err := dc.SavePNG(*out); err != nil {
		log.Fatalf("❌ Failed to write PNG: %v", err)
	}
	log.Printf("🖼️ Wrote %s (%d snapshots for %s)", *out, history.Count, history.EntityID)
}

func fetchHistory(server, entityID string) (*historyResponse, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	url := fmt.Sprintf("%s/api/entities/%s/history", server, entityID)

	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s for %s", resp.Status, url)
	}

	var history historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, err
	}
	return &history, nil
}

// project maps world X/Z onto the canvas, fitted to the trail's bounding box.
type projection struct {
	minX, minZ float64
	scale      float64
}

func fitProjection(snaps []rewind.Snapshot) projection {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minZ, maxZ := math.Inf(1), math.Inf(-1)
	for _, s := range snaps {
		minX = math.Min(minX, s.Position.X)
		maxX = math.Max(maxX, s.Position.X)
		minZ = math.Min(minZ, s.Position.Z)
		maxZ = math.Max(maxZ, s.Position.Z)
	}

	spanX := maxX - minX
	spanZ := maxZ - minZ
	if spanX < 1 {
		spanX = 1
	}
	if spanZ < 1 {
		spanZ = 1
	}

	scale := math.Min(
		(canvasWidth-2*margin)/spanX,
		(canvasHeight-2*margin)/spanZ,
	)
	return projection{minX: minX, minZ: minZ, scale: scale}
}

func (p projection) point(s rewind.Snapshot) (float64, float64) {
	return margin + (s.Position.X-p.minX)*p.scale,
		margin + (s.Position.Z-p.minZ)*p.scale
}

func drawBackground(dc *gg.Context) {
	dc.SetColor(color.RGBA{12, 12, 28, 255})
	dc.DrawRectangle(0, 0, canvasWidth, canvasHeight)
	dc.Fill()
}

func drawGrid(dc *gg.Context) {
	dc.SetColor(color.RGBA{30, 30, 45, 255})
	dc.SetLineWidth(1)

	gridSize := 100.0
	for x := 0.0; x < canvasWidth; x += gridSize {
		dc.DrawLine(x, 0, x, canvasHeight)
		dc.Stroke()
	}
	for y := 0.0; y < canvasHeight; y += gridSize {
		dc.DrawLine(0, y, canvasWidth, y)
		dc.Stroke()
	}
}

func drawTrail(dc *gg.Context, snaps []rewind.Snapshot) {
	proj := fitProjection(snaps)

	// Trail segments, older = more transparent
	for i := 1; i < len(snaps); i++ {
		x1, y1 := proj.point(snaps[i-1])
		x2, y2 := proj.point(snaps[i])

		alpha := uint8(60 + 195*i/len(snaps))
		dc.SetColor(color.RGBA{90, 200, 255, alpha})
		dc.SetLineWidth(3)
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}

	// Snapshot markers tinted by vitality
	for i, s := range snaps {
		x, y := proj.point(s)
		dc.SetColor(vitalityColor(s.Vitality))
		dc.DrawCircle(x, y, 4)
		dc.Fill()

		if i == 0 {
			// Oldest snapshot: the usual recall target
			dc.SetColor(color.RGBA{255, 215, 0, 255})
			dc.SetLineWidth(3)
			dc.DrawCircle(x, y, 12)
			dc.Stroke()
		}
	}

	// Newest position
	x, y := proj.point(snaps[len(snaps)-1])
	dc.SetColor(color.White)
	dc.SetLineWidth(4)
	dc.DrawCircle(x, y, 8)
	dc.Stroke()
}

func vitalityColor(vitality float64) color.RGBA {
	switch {
	case vitality > 50:
		return color.RGBA{83, 255, 69, 255}
	case vitality > 25:
		return color.RGBA{255, 149, 0, 255}
	default:
		return color.RGBA{255, 62, 62, 255}
	}
}

func drawLegend(dc *gg.Context, history *historyResponse) {
	oldest := history.Snapshots[0]
	newest := history.Snapshots[len(history.Snapshots)-1]

	dc.SetColor(color.White)
	dc.DrawStringAnchored(
		fmt.Sprintf("%s: %d snapshots, %.1fs of history",
			history.EntityID, history.Count, newest.Timestamp-oldest.Timestamp),
		canvasWidth/2, 30, 0.5, 0.5)

	dc.SetColor(color.RGBA{255, 215, 0, 255})
	dc.DrawStringAnchored("◎ oldest (recall target)", margin+80, canvasHeight-30, 0.5, 0.5)
	dc.SetColor(color.White)
	dc.DrawStringAnchored("○ current position", canvasWidth-margin-80, canvasHeight-30, 0.5, 0.5)
}
