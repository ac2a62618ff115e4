package config

import (
	"flag"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dmitrijs2005/cmsauth/internal/flagx"
)

var serverFlags = []string{"-a", "-d", "-s", "-t", "-r", "-m", "-l", "-ht", "-hm", "-hp", "-dt", "-w", "-tp"}

// parseFlags overlays command-line flags onto config.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN, or memory:// for in-process stores
//	-s string   HMAC secret key
//	-t int      access token ttl, seconds
//	-r int      refresh token ttl, seconds
//	-m int      failed logins before lockout
//	-l int      lockout window, seconds
//	-ht/-hm/-hp argon2 time, memory (KiB), threads
//	-dt int     per-call database timeout, seconds
//	-w string   sweeper cron schedule
//	-tp string  comma-separated trusted proxy networks
//
// Parse errors panic, matching the JSON loader.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTTL := fs.Int64("t", seconds(config.AccessTTL), "access token ttl (in seconds)")
	refreshTTL := fs.Int64("r", seconds(config.RefreshTTL), "refresh token ttl (in seconds)")

	fs.IntVar(&config.MaxAttempts, "m", config.MaxAttempts, "failed logins before lockout")
	lockoutWindow := fs.Int64("l", seconds(config.LockoutWindow), "lockout window (in seconds)")

	hashTime := fs.Uint64("ht", uint64(config.HashTime), "argon2 time cost")
	hashMemory := fs.Uint64("hm", uint64(config.HashMemoryKiB), "argon2 memory cost (KiB)")
	hashThreads := fs.Uint64("hp", uint64(config.HashThreads), "argon2 parallelism")

	dbTimeout := fs.Int64("dt", seconds(config.DBTimeout), "database call timeout (in seconds)")
	fs.StringVar(&config.SweepSchedule, "w", config.SweepSchedule, "expired certificate sweep schedule")
	fs.Func("tp", "comma-separated trusted proxy networks", func(v string) error {
		config.TrustedProxies = strings.Split(v, ",")
		return nil
	})

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		panic(err)
	}

	mustFit("ht", *hashTime, math.MaxUint32)
	mustFit("hm", *hashMemory, math.MaxUint32)
	mustFit("hp", *hashThreads, math.MaxUint8)

	config.AccessTTL = time.Duration(*accessTTL) * time.Second
	config.RefreshTTL = time.Duration(*refreshTTL) * time.Second
	config.LockoutWindow = time.Duration(*lockoutWindow) * time.Second
	config.DBTimeout = time.Duration(*dbTimeout) * time.Second
	config.HashTime = uint32(*hashTime)
	config.HashMemoryKiB = uint32(*hashMemory)
	config.HashThreads = uint8(*hashThreads)
}

// mustFit panics when a flag value would be truncated by narrowing.
func mustFit(name string, v, limit uint64) {
	if v > limit {
		panic(fmt.Errorf("flag -%s: value %d out of range (max %d)", name, v, limit))
	}
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
