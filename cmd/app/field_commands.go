package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/fieldcrypt/cmd/app/commands"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
)

// fieldAction builds an action that runs fn with the configured field cipher.
func fieldAction(
	fn func(ctx context.Context, fieldCipher cryptoService.FieldCipher, io commands.IOTuple, value string) error,
) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		container, err := newContainer()
		if err != nil {
			return err
		}
		defer func() { _ = container.Shutdown(ctx) }()

		fieldCipher, err := container.FieldCipher()
		if err != nil {
			return err
		}
		return fn(ctx, fieldCipher, commands.DefaultIO(), cmd.String("value"))
	}
}

func getFieldCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "encrypt",
			Usage: "Encrypt a value and print the envelope",
			Flags: []cli.Flag{valueFlag()},
			Action: fieldAction(
				func(ctx context.Context, fc cryptoService.FieldCipher, io commands.IOTuple, value string) error {
					return commands.RunEncrypt(fc, io, value)
				},
			),
		},
		{
			Name:  "decrypt",
			Usage: "Strictly decrypt an envelope; fails on undecryptable values",
			Flags: []cli.Flag{valueFlag()},
			Action: fieldAction(
				func(ctx context.Context, fc cryptoService.FieldCipher, io commands.IOTuple, value string) error {
					return commands.RunDecrypt(fc, io, value)
				},
			),
		},
		{
			Name:   "decrypt-if-needed",
			Usage:  "Decrypt an envelope, passing plaintext and undecryptable values through",
			Flags:  []cli.Flag{valueFlag()},
			Action: fieldAction(commands.RunDecryptIfNeeded),
		},
		{
			Name:  "classify",
			Usage: "Print whether a value is empty, an envelope or plaintext",
			Flags: []cli.Flag{valueFlag()},
			Action: fieldAction(
				func(ctx context.Context, fc cryptoService.FieldCipher, io commands.IOTuple, value string) error {
					return commands.RunClassify(fc, io, value)
				},
			),
		},
		{
			Name:  "hash",
			Usage: "Print the lookup hash of a value",
			Flags: []cli.Flag{valueFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunHash(container.LookupHasher(), commands.DefaultIO(), cmd.String("value"))
			},
		},
	}
}
