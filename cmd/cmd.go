package cmd

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/wafers3/transformers/envconfig"
	"github.com/wafers3/transformers/logutil"
	"github.com/wafers3/transformers/server"
	"github.com/wafers3/transformers/tokenizer"
)

func loadTokenizer(cmd *cobra.Command) (*tokenizer.Tokenizer, error) {
	vocab, _ := cmd.Flags().GetString("vocab")
	merges, _ := cmd.Flags().GetString("merges")
	eos, _ := cmd.Flags().GetString("eos")

	if vocab == "" || merges == "" {
		return nil, fmt.Errorf("both --vocab and --merges are required")
	}

	var opts []tokenizer.Option
	if eos != "" {
		opts = append(opts, tokenizer.WithEOS(eos))
	}

	return tokenizer.New(vocab, merges, opts...)
}

func initLogging() {
	level := slog.LevelInfo
	if envconfig.Debug {
		level = slog.LevelDebug
	}
	if envconfig.Trace {
		level = logutil.LevelTrace
	}

	slog.SetDefault(logutil.NewLogger(os.Stderr, level))
}

func EncodeHandler(cmd *cobra.Command, args []string) error {
	tok, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	tokens := tok.Tokenize(text)
	ids, err := tok.ConvertTokensToIDs(tokens)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Token", "ID"})
	for i, token := range tokens {
		table.Append([]string{strconv.Quote(token), strconv.Itoa(int(ids[i]))})
	}
	table.Render()

	return nil
}

func DecodeHandler(cmd *cobra.Command, args []string) error {
	tok, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	ids := make([]int32, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid token id %q: %w", arg, err)
		}
		ids = append(ids, int32(id))
	}

	spaces, _ := cmd.Flags().GetBool("spaces-between-special-tokens")
	var opts []tokenizer.DecodeOption
	if spaces {
		opts = append(opts, tokenizer.WithSpacesBetweenSpecialTokens())
	}

	text, err := tok.Decode(ids, opts...)
	if err != nil {
		return err
	}

	fmt.Println(text)
	return nil
}

func ServeHandler(cmd *cobra.Command, args []string) error {
	tok, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", envconfig.Host)
	if err != nil {
		return err
	}

	return server.Serve(ln, tok)
}

func NewCLI() *cobra.Command {
	envconfig.LoadConfig()
	initLogging()

	rootCmd := &cobra.Command{
		Use:   "tokenizer",
		Short: "Byte-level BPE tokenizer",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SilenceUsage = true
		},
	}

	rootCmd.PersistentFlags().String("vocab", "", "Path to vocab.json")
	rootCmd.PersistentFlags().String("merges", "", "Path to merges.txt")
	rootCmd.PersistentFlags().String("eos", "<|endoftext|>", "End of text token")

	cobra.EnableCommandSorting = false

	encodeCmd := &cobra.Command{
		Use:   "encode TEXT...",
		Short: "Tokenize text and print the token/id table",
		Args:  cobra.MinimumNArgs(1),
		RunE:  EncodeHandler,
	}

	decodeCmd := &cobra.Command{
		Use:   "decode ID...",
		Short: "Decode token ids back to text",
		Args:  cobra.MinimumNArgs(1),
		RunE:  DecodeHandler,
	}
	decodeCmd.Flags().Bool("spaces-between-special-tokens", false, "Insert spaces between added special tokens")

	serveCmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the tokenizer server",
		RunE:    ServeHandler,
	}

	rootCmd.AddCommand(encodeCmd, decodeCmd, serveCmd)

	return rootCmd
}
