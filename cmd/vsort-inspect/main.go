// Command vsort-inspect is an interactive shell over a record file. It
// drives the same buffer pool and record accessor the sort uses, so cache
// behavior can be watched record by record.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/VSortDB/vsort/pkg/blockfile"
	"github.com/VSortDB/vsort/pkg/bufferpool"
	"github.com/VSortDB/vsort/pkg/snapshot"
	"github.com/VSortDB/vsort/pkg/verify"
)

// Command completer for readline
var completer = readline.NewPrefixCompleter(
	readline.PcItem(".help"),
	readline.PcItem(".open"),
	readline.PcItem(".close"),
	readline.PcItem(".exit"),
	readline.PcItem(".stats"),
	readline.PcItem(".flush"),
	readline.PcItem("GET"),
	readline.PcItem("SET"),
	readline.PcItem("SWAP"),
	readline.PcItem("COUNT"),
	readline.PcItem("BLOCK"),
	readline.PcItem("VERIFY"),
	readline.PcItem("FINGERPRINT"),
	readline.PcItem("SNAPSHOT"),
	readline.PcItem("RESTORE"),
)

const helpText = `
vsort-inspect - interactive shell over a binary record file.

Usage:
  vsort-inspect [options] [data_file]

Options:
  -buffers N              - Buffer pool size (default 4)

Commands:
  .help                   - Show this help message
  .open PATH              - Open a record file at PATH
  .close                  - Close the current file
  .exit                   - Exit the program
  .stats                  - Show buffer pool statistics
  .flush                  - Write all dirty buffers back to disk

  GET index               - Print the record at index
  SET index key value     - Overwrite the record at index
  SWAP i j                - Exchange two records
  COUNT                   - Print the number of records
  BLOCK id                - Print a block summary with its checksum

  VERIFY                  - Check the file is sorted by key
  FINGERPRINT             - Print the order-insensitive content digest
  SNAPSHOT PATH [codec]   - Write a compressed copy (none, snappy, zstd)
  RESTORE SRC DST         - Restore a snapshot into DST
`

type session struct {
	pool       *bufferpool.Pool
	path       string
	numBuffers int
}

func main() {
	numBuffers := 4
	args := os.Args[1:]
	if len(args) >= 2 && args[0] == "-buffers" {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error: Invalid number of buffers")
			os.Exit(1)
		}
		numBuffers = n
		args = args[2:]
	}

	s := &session{numBuffers: numBuffers}
	if len(args) >= 1 {
		if err := s.open(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %s: %s\n", args[0], err)
			os.Exit(1)
		}
	}

	fmt.Println("vsort-inspect version 1.0.0")
	fmt.Println("Enter .help for usage hints.")

	historyFile := filepath.Join(os.TempDir(), ".vsort_inspect_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "vsort> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing readline: %s\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		if s.path != "" {
			rl.SetPrompt(fmt.Sprintf("vsort:%s> ", filepath.Base(s.path)))
		} else {
			rl.SetPrompt("vsort> ")
		}

		line, err := rl.Readline()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if done := s.dispatch(line); done {
			break
		}
	}

	s.close()
}

// dispatch handles one shell line; returns true when the shell should exit.
func (s *session) dispatch(line string) bool {
	fields := strings.Fields(line)
	cmd := strings.ToUpper(fields[0])

	switch cmd {
	case ".EXIT":
		return true
	case ".HELP":
		fmt.Print(helpText)
	case ".OPEN":
		if len(fields) != 2 {
			fmt.Println("Usage: .open PATH")
			break
		}
		s.close()
		if err := s.open(fields[1]); err != nil {
			fmt.Printf("Error: %s\n", err)
		} else {
			fmt.Printf("Opened %s (%d records)\n", s.path, s.pool.RecordCount())
		}
	case ".CLOSE":
		s.close()
	case ".STATS":
		if !s.ready() {
			break
		}
		fmt.Printf("Cache hits: %d\nDisk reads: %d\nDisk writes: %d\n",
			s.pool.CacheHits(), s.pool.DiskReads(), s.pool.DiskWrites())
	case ".FLUSH":
		if !s.ready() {
			break
		}
		if err := s.pool.FlushAll(); err != nil {
			fmt.Printf("Error: %s\n", err)
		}
	case "GET":
		s.cmdGet(fields)
	case "SET":
		s.cmdSet(fields)
	case "SWAP":
		s.cmdSwap(fields)
	case "COUNT":
		if s.ready() {
			fmt.Println(s.pool.RecordCount())
		}
	case "BLOCK":
		s.cmdBlock(fields)
	case "VERIFY":
		s.cmdVerify()
	case "FINGERPRINT":
		s.cmdFingerprint()
	case "SNAPSHOT":
		s.cmdSnapshot(fields)
	case "RESTORE":
		s.cmdRestore(fields)
	default:
		fmt.Printf("Unknown command: %s\n", fields[0])
	}
	return false
}

func (s *session) open(path string) error {
	pool, err := bufferpool.Open(path, s.numBuffers)
	if err != nil {
		return err
	}
	s.pool = pool
	s.path = path
	return nil
}

func (s *session) close() {
	if s.pool == nil {
		return
	}
	if err := s.pool.Close(); err != nil {
		fmt.Printf("Error closing %s: %s\n", s.path, err)
	}
	s.pool = nil
	s.path = ""
}

func (s *session) ready() bool {
	if s.pool == nil {
		fmt.Println("No file open. Use .open PATH")
		return false
	}
	return true
}

func (s *session) cmdGet(fields []string) {
	if !s.ready() {
		return
	}
	if len(fields) != 2 {
		fmt.Println("Usage: GET index")
		return
	}
	r, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Println("Usage: GET index")
		return
	}
	key, err := s.pool.GetKey(r)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	value, err := s.pool.GetValue(r)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	fmt.Printf("record %d: key=%d value=%d\n", r, key, value)
}

func (s *session) cmdSet(fields []string) {
	if !s.ready() {
		return
	}
	if len(fields) != 4 {
		fmt.Println("Usage: SET index key value")
		return
	}
	r, err1 := strconv.Atoi(fields[1])
	key, err2 := strconv.ParseInt(fields[2], 10, 16)
	value, err3 := strconv.ParseInt(fields[3], 10, 16)
	if err1 != nil || err2 != nil || err3 != nil {
		fmt.Println("Usage: SET index key value")
		return
	}
	if err := s.pool.SetRecord(r, int16(key), int16(value)); err != nil {
		fmt.Printf("Error: %s\n", err)
	}
}

func (s *session) cmdSwap(fields []string) {
	if !s.ready() {
		return
	}
	if len(fields) != 3 {
		fmt.Println("Usage: SWAP i j")
		return
	}
	i, err1 := strconv.Atoi(fields[1])
	j, err2 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil {
		fmt.Println("Usage: SWAP i j")
		return
	}
	if err := s.pool.SwapRecords(i, j); err != nil {
		fmt.Printf("Error: %s\n", err)
	}
}

func (s *session) cmdBlock(fields []string) {
	if !s.ready() {
		return
	}
	if len(fields) != 2 {
		fmt.Println("Usage: BLOCK id")
		return
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Println("Usage: BLOCK id")
		return
	}
	buf, err := s.pool.GetBlock(id)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	first := blockfile.DecodeKey(buf)
	last := blockfile.DecodeKey(buf[(blockfile.RecordsPerBlock-1)*blockfile.BytesPerRecord:])
	fmt.Printf("block %d: first key=%d last key=%d checksum=%016x\n",
		id, first, last, verify.BlockChecksum(buf))
}

// flushThen runs fn against the on-disk file with all dirty buffers written
// back first, so direct file scans see current data.
func (s *session) flushThen(fn func(path string)) {
	if !s.ready() {
		return
	}
	if err := s.pool.FlushAll(); err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	fn(s.path)
}

func (s *session) cmdVerify() {
	s.flushThen(func(path string) {
		sorted, err := verify.CheckFile(path)
		if err != nil {
			fmt.Printf("Error: %s\n", err)
			return
		}
		if sorted {
			fmt.Println("sorted")
		} else {
			fmt.Println("NOT sorted")
		}
	})
}

func (s *session) cmdFingerprint() {
	s.flushThen(func(path string) {
		sum, err := verify.Fingerprint(path)
		if err != nil {
			fmt.Printf("Error: %s\n", err)
			return
		}
		fmt.Printf("%016x\n", sum)
	})
}

func (s *session) cmdSnapshot(fields []string) {
	if len(fields) != 2 && len(fields) != 3 {
		fmt.Println("Usage: SNAPSHOT PATH [codec]")
		return
	}
	codecName := "zstd"
	if len(fields) == 3 {
		codecName = fields[2]
	}
	codec, err := snapshot.ParseCodec(codecName)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	s.flushThen(func(path string) {
		if err := snapshot.Write(path, fields[1], codec); err != nil {
			fmt.Printf("Error: %s\n", err)
			return
		}
		fmt.Printf("Snapshot written to %s\n", fields[1])
	})
}

func (s *session) cmdRestore(fields []string) {
	if len(fields) != 3 {
		fmt.Println("Usage: RESTORE SRC DST")
		return
	}
	if err := snapshot.Restore(fields[1], fields[2]); err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	fmt.Printf("Restored %s to %s\n", fields[1], fields[2])
}
