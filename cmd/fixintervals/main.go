// Command fixintervals interactively repairs funding-interval cells that a
// scan could not infer. It walks the expectancy CSV, prompts for every
// empty interval column and rewrites the file in place.
package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

func main() {
	file := flag.String("file", "expectancy.csv", "Path to the expectancy CSV to repair")
	flag.Parse()

	if err := run(*file, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "fixintervals:", err)
		os.Exit(1)
	}
}

func run(path string, in *os.File, out *os.File) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	rows, err := csv.NewReader(f).ReadAll()
	f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) < 1 {
		return fmt.Errorf("%s is empty", path)
	}

	header := rows[0]
	columns := map[string]int{}
	for i, name := range header {
		columns[name] = i
	}

	reader := bufio.NewReader(in)
	fixed := 0
	for _, target := range []struct {
		interval string
		exchange string
	}{
		{"long_interval_hours", "long_exchange"},
		{"short_interval_hours", "short_exchange"},
	} {
		col, ok := columns[target.interval]
		if !ok {
			return fmt.Errorf("column %s not found in %s", target.interval, path)
		}
		exCol := columns[target.exchange]
		insCol := columns["instrument"]

		for _, row := range rows[1:] {
			if strings.TrimSpace(row[col]) != "" {
				continue
			}
			value, err := prompt(reader, out, fmt.Sprintf(
				"[%s] %s on %s is empty. Enter interval hours: ",
				target.interval, row[insCol], row[exCol]))
			if err != nil {
				return err
			}
			if value == "" {
				continue
			}
			row[col] = value
			fixed++
		}
	}

	if fixed == 0 {
		fmt.Fprintln(out, "nothing to repair")
		return nil
	}

	tmp := path + ".tmp"
	w, err := os.Create(tmp)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	fmt.Fprintf(out, "repaired %d interval cells in %s\n", fixed, path)
	return nil
}

// prompt asks until the user enters a valid number or an empty line to skip.
func prompt(reader *bufio.Reader, out *os.File, question string) (string, error) {
	for {
		fmt.Fprint(out, question)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return "", nil
		}
		if v, err := strconv.ParseFloat(line, 64); err == nil && v > 0 {
			return line, nil
		}
		fmt.Fprintln(out, "enter a positive number of hours, or an empty line to skip")
	}
}
