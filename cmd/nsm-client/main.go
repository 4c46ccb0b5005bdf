// The nsm-client command pokes a served NSM session: module metadata, random
// bytes, PCR operations, certificate slots, and attestation documents.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/nitrosim/nsm-simulator/api/nsmhandler"
	nsmclient "github.com/nitrosim/nsm-simulator/client"
	"github.com/nitrosim/nsm-simulator/cmd/flags"
	"github.com/urfave/cli/v2"
)

var flagSlot = &cli.UintFlag{
	Name:  "slot",
	Value: 0,
	Usage: "slot index",
}

var flagData = &cli.StringFlag{
	Name:  "data",
	Usage: "payload bytes, as a literal string",
}

var flagFile = &cli.StringFlag{
	Name:  "file",
	Usage: "path to read the payload from instead of --data",
}

func remote(cCtx *cli.Context) *nsmhandler.Client {
	return nsmhandler.NewClient(cCtx.String(flags.ServerAddrFlag.Name), nil)
}

func payload(cCtx *cli.Context) ([]byte, error) {
	if file := cCtx.String(flagFile.Name); file != "" {
		return os.ReadFile(file)
	}
	return []byte(cCtx.String(flagData.Name)), nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func main() {
	app := &cli.App{
		Name:           "nsm-client",
		Usage:          "Query a served Nitro Secure Module simulation",
		DefaultCommand: "describe",
		Flags:          []cli.Flag{flags.ServerAddrFlag},
		Commands: []*cli.Command{
			{
				Name:  "describe",
				Usage: "print the module metadata record",
				Action: func(cCtx *cli.Context) error {
					description, err := remote(cCtx).Describe()
					if err != nil {
						return err
					}
					return printJSON(description)
				},
			},
			{
				Name:  "random",
				Usage: "fetch pseudo-random bytes",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "length", Value: 32, Usage: "number of bytes"},
				},
				Action: func(cCtx *cli.Context) error {
					out, err := remote(cCtx).GetRandom(cCtx.Int("length"))
					if err != nil {
						return err
					}
					fmt.Println(hex.EncodeToString(out))
					return nil
				},
			},
			{
				Name:  "digest",
				Usage: "fetch the attestation digest over the register bank",
				Action: func(cCtx *cli.Context) error {
					digest, err := remote(cCtx).BankDigest()
					if err != nil {
						return err
					}
					fmt.Println(hex.EncodeToString(digest))
					return nil
				},
			},
			{
				Name:  "attest",
				Usage: "fetch an attestation document",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user-data", Usage: "user data to bind into the document"},
					&cli.StringFlag{Name: "public-key", Usage: "public key to bind into the document"},
					&cli.StringFlag{Name: "nonce", Usage: "nonce to bind into the document"},
				},
				Action: func(cCtx *cli.Context) error {
					doc, err := remote(cCtx).Attest(nsmclient.AttestationRequest{
						UserData:  []byte(cCtx.String("user-data")),
						PublicKey: []byte(cCtx.String("public-key")),
						Nonce:     []byte(cCtx.String("nonce")),
					})
					if err != nil {
						return err
					}
					return printJSON(doc)
				},
			},
			{
				Name:  "pcr",
				Usage: "platform configuration register operations",
				Subcommands: []*cli.Command{
					{
						Name:  "describe",
						Usage: "print one register",
						Flags: []cli.Flag{flagSlot},
						Action: func(cCtx *cli.Context) error {
							value, err := remote(cCtx).DescribePCR(uint32(cCtx.Uint(flagSlot.Name)))
							if err != nil {
								return err
							}
							return printJSON(value)
						},
					},
					{
						Name:  "extend",
						Usage: "extend one register with measurement data",
						Flags: []cli.Flag{flagSlot, flagData, flagFile},
						Action: func(cCtx *cli.Context) error {
							data, err := payload(cCtx)
							if err != nil {
								return err
							}
							value, err := remote(cCtx).ExtendPCR(uint32(cCtx.Uint(flagSlot.Name)), data)
							if err != nil {
								return err
							}
							return printJSON(value)
						},
					},
					{
						Name:  "lock",
						Usage: "lock one register",
						Flags: []cli.Flag{flagSlot},
						Action: func(cCtx *cli.Context) error {
							return remote(cCtx).LockPCR(uint32(cCtx.Uint(flagSlot.Name)))
						},
					},
					{
						Name:  "lock-range",
						Usage: "lock all registers below the limit",
						Flags: []cli.Flag{
							&cli.UintFlag{Name: "limit", Usage: "first register left unlocked"},
						},
						Action: func(cCtx *cli.Context) error {
							return remote(cCtx).LockPCRs(uint32(cCtx.Uint("limit")))
						},
					},
				},
			},
			{
				Name:  "cert",
				Usage: "certificate slot operations",
				Subcommands: []*cli.Command{
					{
						Name:  "set",
						Usage: "store a certificate blob",
						Flags: []cli.Flag{flagSlot, flagData, flagFile},
						Action: func(cCtx *cli.Context) error {
							data, err := payload(cCtx)
							if err != nil {
								return err
							}
							return remote(cCtx).SetCertificate(uint32(cCtx.Uint(flagSlot.Name)), data)
						},
					},
					{
						Name:  "get",
						Usage: "print a stored certificate blob",
						Flags: []cli.Flag{flagSlot},
						Action: func(cCtx *cli.Context) error {
							certificate, err := remote(cCtx).DescribeCertificate(uint32(cCtx.Uint(flagSlot.Name)))
							if err != nil {
								return err
							}
							os.Stdout.Write(certificate)
							return nil
						},
					},
					{
						Name:  "remove",
						Usage: "empty a certificate slot",
						Flags: []cli.Flag{flagSlot},
						Action: func(cCtx *cli.Context) error {
							return remote(cCtx).RemoveCertificate(uint32(cCtx.Uint(flagSlot.Name)))
						},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
