package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/term"

	"classfees/internal/auth"
	"classfees/internal/docstore"
	"classfees/internal/log"
	"classfees/internal/roster"
	"classfees/internal/services"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out    io.Writer
	logger *log.Logger
	// openStore is called only by the commands that touch data.
	openStore func(ctx context.Context) (docstore.Store, func() error, error)
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  hash-passphrase                  - prompt for the operator passphrase and print its bcrypt hash")
	fmt.Fprintln(cli.out, "  import-students -file ROSTER.xlsx - register the students listed in a roster workbook")
	fmt.Fprintln(cli.out, "  export-ledger -out LEDGER.xlsx    - write students and payments to a workbook")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCmd := flag.NewFlagSet("import-students", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "The roster workbook (.xlsx) to import.")
	exportCmd := flag.NewFlagSet("export-ledger", flag.ContinueOnError)
	exportOut := exportCmd.String("out", "ledger.xlsx", "Where to write the workbook.")

	switch args[1] {
	case "hash-passphrase":
		fmt.Fprint(cli.out, "Enter passphrase:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			return errHelp
		}
		hash, err := auth.HashPassphrase(string(pwd))
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.out, hash)
		return nil
	case "import-students":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importStudents(ctx, *importFile)
	case "export-ledger":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.exportLedger(ctx, *exportOut)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) importStudents(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	store, closeStore, err := cli.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	// No publisher: the worker's periodic resync picks the new students up.
	students := services.NewStudentService(store, nil, nil, 0, cli.logger, nil)
	res, err := roster.ImportStudents(ctx, f, students, cli.logger.With("file", path))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func (cli *commandLine) exportLedger(ctx context.Context, path string) error {
	store, closeStore, err := cli.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	snap, err := services.NewSnapshots(store, 0, cli.logger, nil).Refresh(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := roster.ExportLedger(f, snap.Students, snap.Payments, snap.LoadedAt); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Wrote %d students and %d payments to %s\n", len(snap.Students), len(snap.Payments), path)
	return nil
}
