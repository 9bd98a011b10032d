// Command tablectl is a local administration tool for a tagtable
// table directory: create, add, get, delete, dump, and check a table
// without going through tableserver's HTTP API.
package main

import (
	"flag"
	"fmt"
	"os"

	"tagtable/internal/engine"
	"tagtable/internal/platform/debugdump"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "tablectl:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tablectl <create|add|get|del|dump|check> ...")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "create":
		return runCreate(rest)
	case "add":
		return runAdd(rest)
	case "get":
		return runGet(rest)
	case "del":
		return runDel(rest)
	case "dump":
		return runDump(rest)
	case "check":
		return runCheck(rest)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func commonFlags(fs *flag.FlagSet) (dir, name *string) {
	dir = fs.String("dir", ".", "table directory")
	name = fs.String("table", "main", "table name")
	return
}

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	dir, name := commonFlags(fs)
	blockSize := fs.Int("block-size", 8192, "block size in bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	t, err := engine.CreateAndOpen(*dir, *name, *blockSize)
	if err != nil {
		return err
	}
	return t.Close()
}

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	dir, name := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return fmt.Errorf("usage: tablectl add -dir D -table T KEY TAG")
	}
	t, err := engine.Open(*dir, *name)
	if err != nil {
		return err
	}
	defer t.Close()
	if err := t.Add([]byte(rest[0]), []byte(rest[1])); err != nil {
		return err
	}
	_, err = t.Commit(t.Revision() + 1)
	return err
}

func runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	dir, name := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return fmt.Errorf("usage: tablectl get -dir D -table T KEY")
	}
	t, err := engine.Open(*dir, *name)
	if err != nil {
		return err
	}
	defer t.Close()
	tag, found, err := t.GetExactEntry([]byte(rest[0]))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("key %q not found", rest[0])
	}
	fmt.Println(string(tag))
	return nil
}

func runDel(args []string) error {
	fs := flag.NewFlagSet("del", flag.ExitOnError)
	dir, name := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return fmt.Errorf("usage: tablectl del -dir D -table T KEY")
	}
	t, err := engine.Open(*dir, *name)
	if err != nil {
		return err
	}
	defer t.Close()
	found, err := t.Del([]byte(rest[0]))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("key %q not found", rest[0])
	}
	_, err = t.Commit(t.Revision() + 1)
	return err
}

func runDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	dir, name := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	t, err := engine.Open(*dir, *name)
	if err != nil {
		return err
	}
	defer t.Close()

	rc, err := t.NewReadCursor()
	if err != nil {
		return err
	}
	ok, err := rc.Rewind()
	if err != nil {
		return err
	}
	for ok {
		tag, err := rc.Tag()
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", rc.Key(), tag)
		ok, err = rc.Next()
		if err != nil {
			return err
		}
	}
	return nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	dir, name := commonFlags(fs)
	full := fs.Bool("full", false, "also verify every tag decompresses")
	debug := fs.Bool("debug", false, "dump the full report structure instead of a summary")
	if err := fs.Parse(args); err != nil {
		return err
	}
	t, err := engine.Open(*dir, *name)
	if err != nil {
		return err
	}
	defer t.Close()

	report, err := t.Check(engine.CheckOptions{FullTree: *full, ShowBitmap: *debug})
	if err != nil {
		return err
	}

	if *debug {
		fmt.Print(debugdump.Sdump(report))
	} else {
		fmt.Printf("blocks used: %d, levels: %d, items: %d, violations: %d\n",
			report.BlocksUsed, report.Levels, report.ItemCount, len(report.Violations))
		for _, v := range report.Violations {
			fmt.Printf("  block %d: %s\n", v.Block, v.Message)
		}
	}
	if len(report.Violations) > 0 {
		return fmt.Errorf("%d violations found", len(report.Violations))
	}
	return nil
}
