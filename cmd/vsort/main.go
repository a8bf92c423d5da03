// Command vsort sorts a binary record file in place through a fixed-size
// buffer pool and appends cache statistics to a stats file.
//
// Usage:
//
//	vsort <data-file-name> <num-buffers> <stat-file-name>
//
// The optional VSORT_CONFIG environment variable points at a JSON config
// file that tunes the sort thresholds and pre-sort snapshot behavior; the
// buffer count argument always wins over the configured pool size.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/VSortDB/vsort/pkg/bufferpool"
	"github.com/VSortDB/vsort/pkg/common/log"
	"github.com/VSortDB/vsort/pkg/config"
	"github.com/VSortDB/vsort/pkg/runner"
	"github.com/VSortDB/vsort/pkg/verify"
)

func main() {
	run(os.Args[1:])
}

func run(args []string) {
	if len(args) != 3 {
		fmt.Println("Usage: vsort <data-file-name> <num-buffers> <stat-file-name>")
		return
	}

	dataFile := args[0]
	statFile := args[2]

	numBuffers, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Println("Error: Invalid number of buffers")
		return
	}
	if numBuffers < bufferpool.MinBuffers || numBuffers > bufferpool.MaxBuffers {
		fmt.Printf("Number of buffers must be between %d and %d\n",
			bufferpool.MinBuffers, bufferpool.MaxBuffers)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	logger := log.NewStandardLogger(log.WithOutput(os.Stderr))
	r, err := runner.New(cfg, logger)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	if _, err := r.Sort(dataFile, numBuffers, statFile); err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	sorted, err := verify.CheckFile(dataFile)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	if sorted {
		fmt.Println("File sorted successfully")
	} else {
		fmt.Println("Error: File not sorted correctly")
	}
}

// loadConfig reads the config named by VSORT_CONFIG, or the defaults.
func loadConfig() (*config.Config, error) {
	path := os.Getenv("VSORT_CONFIG")
	if path == "" {
		return config.NewDefaultConfig(), nil
	}
	cfg, err := config.LoadConfigFromFile(path)
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, err
	}
	if errors.Is(err, config.ErrConfigNotFound) {
		return config.NewDefaultConfig(), nil
	}
	return cfg, nil
}
