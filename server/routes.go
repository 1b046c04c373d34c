package server

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/wafers3/transformers/api"
	"github.com/wafers3/transformers/envconfig"
	"github.com/wafers3/transformers/tokenizer"
)

// Server exposes one loaded tokenizer over HTTP.
type Server struct {
	tok *tokenizer.Tokenizer
}

func New(tok *tokenizer.Tokenizer) *Server {
	return &Server{tok: tok}
}

func (s *Server) TokenizeHandler(c *gin.Context) {
	var req api.TokenizeRequest
	if err := c.ShouldBindJSON(&req); errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Text == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing `text` for tokenization"})
		return
	}

	tokens := s.tok.Tokenize(req.Text)
	ids, err := s.tok.ConvertTokensToIDs(tokens)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := api.TokenizeResponse{Tokens: ids}
	if c.Query("verbose") != "" {
		resp.TokenStrings = tokens
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) DetokenizeHandler(c *gin.Context) {
	var req api.DetokenizeRequest
	if err := c.ShouldBindJSON(&req); errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Tokens == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing `tokens` for detokenization"})
		return
	}

	var opts []tokenizer.DecodeOption
	if req.SpacesBetweenSpecialTokens {
		opts = append(opts, tokenizer.WithSpacesBetweenSpecialTokens())
	}

	text, err := s.tok.Decode(req.Tokens, opts...)
	if err != nil {
		// id lookup failures are client errors, not server ones
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, api.DetokenizeResponse{Text: text})
}

func (s *Server) AddTokensHandler(c *gin.Context) {
	var req api.AddTokensRequest
	if err := c.ShouldBindJSON(&req); errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Tokens) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing `tokens` to add"})
		return
	}

	for _, tok := range req.Tokens {
		if tok.Content == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "added token with empty content"})
			return
		}
	}

	added := s.tok.AddTokens(req.Tokens...)
	slog.Info("registered added tokens", "requested", len(req.Tokens), "added", added)
	c.JSON(http.StatusOK, api.AddTokensResponse{Added: added})
}

func (s *Server) VocabHandler(c *gin.Context) {
	c.JSON(http.StatusOK, api.VocabResponse{
		Size:        s.tok.VocabSize(),
		EOS:         s.tok.EOS(),
		AddedTokens: s.tok.AddedTokens(),
	})
}

func (s *Server) GenerateRoutes() http.Handler {
	config := cors.DefaultConfig()
	config.AllowWildcard = true
	config.AllowBrowserExtensions = true
	config.AllowOrigins = envconfig.AllowOrigins

	r := gin.Default()
	r.Use(cors.New(config))

	r.POST("/api/tokenize", s.TokenizeHandler)
	r.POST("/api/detokenize", s.DetokenizeHandler)
	r.POST("/api/tokens", s.AddTokensHandler)
	r.GET("/api/vocab", s.VocabHandler)

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		r.Handle(method, "/", func(c *gin.Context) {
			c.String(http.StatusOK, "Tokenizer is running")
		})
	}

	return r
}

// Serve answers requests on ln until it is closed.
func Serve(ln net.Listener, tok *tokenizer.Tokenizer) error {
	s := New(tok)

	slog.Info("tokenizer server listening", "addr", ln.Addr())
	srv := &http.Server{Handler: s.GenerateRoutes()}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
