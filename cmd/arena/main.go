package main

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/CheekyEntity/Chrono-Rewind/internal/api"
	"github.com/CheekyEntity/Chrono-Rewind/internal/config"
	"github.com/CheekyEntity/Chrono-Rewind/internal/rewind"
	"github.com/CheekyEntity/Chrono-Rewind/internal/session"

	"github.com/joho/godotenv"
)

// wanderBot is a simulated entity so the recall engine can be exercised
// without a real game host attached. Guarded by its own mutex because the
// wander loop and the session tick run on different goroutines.
type wanderBot struct {
	mu  sync.Mutex
	pos rewind.Vec3
	vit float64

	heading float64
}

func (b *wanderBot) Position() rewind.Vec3 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pos
}

func (b *wanderBot) SetPosition(p rewind.Vec3) {
	b.mu.Lock()
	b.pos = p
	b.mu.Unlock()
}

func (b *wanderBot) Vitality() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.vit
}

func (b *wanderBot) SetVitality(v float64) {
	b.mu.Lock()
	b.vit = v
	b.mu.Unlock()
}

// wander advances the bot along a slowly turning heading and occasionally
// takes simulated damage.
func (b *wanderBot) wander(rng *rand.Rand, dt float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.heading += (rng.Float64() - 0.5) * dt * 4
	speed := 8.0
	b.pos.X += speed * dt * math.Cos(b.heading)
	b.pos.Z += speed * dt * math.Sin(b.heading)

	if rng.Float64() < dt*0.2 && b.vit > 15 {
		b.vit -= 5 + rng.Float64()*15
	}
}

// logEffectSink logs recall effect playback instead of driving a renderer.
type logEffectSink struct{}

func (logEffectSink) PlayRecallEffect(pos rewind.Vec3) {
	log.Printf("✨ Recall effect at (%.1f, %.1f, %.1f)", pos.X, pos.Y, pos.Z)
}

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("⏪ ================================")
	log.Println("⏪  CHRONO REWIND - RECALL ARENA")
	log.Println("⏪ ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	serverCfg := appConfig.Server

	log.Printf("⚙️ Config: %d TPS, cooldown %.0fs, rewind %.1fs, kill window %.1fs",
		serverCfg.TickRate, appConfig.Rewind.CooldownSeconds,
		appConfig.Rewind.RewindSeconds, appConfig.Rewind.KillWindowSeconds)

	// Start recall journal
	journal := session.NewJournal()
	if serverCfg.JournalPath != "" {
		if err := journal.Start(serverCfg.JournalPath); err != nil {
			log.Printf("⚠️ Journal disabled: %v", err)
		} else {
			log.Printf("📝 Recall journal: %s", serverCfg.JournalPath)
		}
	} else {
		// In-memory only; still rate limited and observable
		if err := journal.Start(""); err != nil {
			log.Printf("⚠️ Journal disabled: %v", err)
		}
	}

	// Live config provider: operators can retune cooldown/rewind via env
	provider := config.NewProvider()

	sess := session.NewSession(session.SessionOptions{
		TickRate: serverCfg.TickRate,
		Config:   provider,
		Effects:  logEffectSink{},
		Journal:  journal,
	})
	sess.OnTickCost = api.RecordTick

	// Spawn wandering bots so there is history to recall
	botCount := getEnvInt("BOT_COUNT", 5)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	bots := make([]*wanderBot, 0, botCount)
	for i := 0; i < botCount; i++ {
		bot := &wanderBot{
			pos: rewind.Vec3{X: rng.Float64() * 50, Z: rng.Float64() * 50},
			vit: 100,
		}
		bots = append(bots, bot)
		if _, err := sess.Track(fmt.Sprintf("bot-%d", i+1), bot); err != nil {
			log.Printf("⚠️ Failed to track bot-%d: %v", i+1, err)
		}
	}

	// Wander loop runs beside the session tick loop
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			for _, bot := range bots {
				bot.wander(rng, 0.05)
			}
		}
	}()

	// Start debug server
	debugCfg := api.DefaultObservabilityConfig()
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	// Create API server
	server := api.NewServer(sess)

	// Start session tick loop
	sess.Start()
	log.Println("✅ Recall session started")

	// Start API server in goroutine
	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Println("")
	log.Println("📋 Try it:")
	log.Printf("   curl http://localhost:%d/api/state", serverCfg.Port)
	log.Printf("   curl http://localhost:%d/api/entities/bot-1/history", serverCfg.Port)
	log.Printf("   curl -X POST http://localhost:%d/api/entities/bot-1/recall", serverCfg.Port)
	log.Println("")

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Arena ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	server.Stop()
	sess.Stop()
	journal.Stop()
	log.Println("👋 Goodbye!")
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
