// Command townrename lists or renames OpenTTD towns (the CITY chunk) within
// a save file, leaving every other chunk untouched.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jf908/openttd-map-parser"
	"github.com/jf908/openttd-map-parser/errors"
	"github.com/jf908/openttd-map-parser/jgr"
	"github.com/jf908/openttd-map-parser/town"
)

const usage = `usage: townrename [-match substring] [-replace name] [-out path] [-dump] <save-file>

Lists every town in <save-file>. When -match and -replace are both given,
renames every town whose name contains the match substring, replacing each
occurrence of it with the -replace text, and writes the modified save to
-out (default: overwrite <save-file>). -dump prints a tree dump of the
whole save to stderr before the town scan.

Flags:
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	match := flag.String("match", "", "substring to match against town names")
	replace := flag.String("replace", "", "text that replaces the match substring in matched town names")
	out := flag.String("out", "", "output path (default: overwrite the input file)")
	dump := flag.Bool("dump", false, "print a tree dump of the save's chunks to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	if err := run(path, *match, *replace, *out, *dump); err != nil {
		fmt.Fprintln(os.Stderr, "townrename:", err)
		os.Exit(1)
	}
}

func run(path, match, replace, out string, dump bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	s, err := save.Decode(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	if dump {
		if err := s.Dump(os.Stderr); err != nil {
			return fmt.Errorf("dump %s: %w", path, err)
		}
	}

	features := jgr.Empty
	if raw, ok := s.Get(jgr.Tag); ok {
		riff, ok := raw.(save.RiffValue)
		if !ok {
			return fmt.Errorf("SLXI chunk has unexpected shape %T", raw)
		}
		parsed, err := jgr.Parse(riff.Data)
		if err != nil {
			return fmt.Errorf("parse SLXI: %w", err)
		}
		features = parsed
	}

	cityValue, ok := s.Get(town.Tag)
	if !ok {
		return fmt.Errorf("save has no %s chunk", town.Tag)
	}
	cityArray, ok := cityValue.(*save.ArrayValue)
	if !ok {
		return fmt.Errorf("%s chunk has unexpected shape %T", town.Tag, cityValue)
	}

	// A single malformed row (a town using an SLXI feature this build does
	// not recognize, say) shouldn't abort a scan of the rest of the save.
	// Collect per-row failures and report them together at the end.
	var rowErrs errors.Errors

	renamed := 0
	for i, row := range cityArray.Rows {
		t, err := town.Parse(row, features)
		if err != nil {
			rowErrs = rowErrs.Append(fmt.Errorf("parse town %d: %w", i, err))
			continue
		}

		fmt.Printf("%d: %s\n", i, t.Name)

		if match == "" || replace == "" || !strings.Contains(t.Name, match) {
			continue
		}
		t.Name = strings.ReplaceAll(t.Name, match, replace)
		encoded, err := t.Encode()
		if err != nil {
			rowErrs = rowErrs.Append(fmt.Errorf("encode town %d: %w", i, err))
			continue
		}
		cityArray.Rows[i] = encoded
		renamed++
	}

	if len(rowErrs) > 0 {
		fmt.Fprintln(os.Stderr, rowErrs.Error())
	}

	if renamed == 0 {
		return rowErrs.Return()
	}

	outBytes, err := s.Encode()
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}

	outPath := out
	if outPath == "" {
		outPath = path
	}
	if err := os.WriteFile(outPath, outBytes, 0644); err != nil {
		return err
	}
	fmt.Printf("renamed %d town(s), wrote %s\n", renamed, outPath)
	return nil
}
