package server

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/arborly/sftrie/pkg/hotcache"
	"github.com/arborly/sftrie/pkg/search"
	"github.com/arborly/sftrie/pkg/text"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Server handles msgpack IPC for one search.Client over stdin/stdout. A
// Server is single-threaded by design: Start reads one request, fully
// answers it, then reads the next. It never serves two requests at once.
type Server struct {
	client          *search.Client[byte, uint32]
	cache           *hotcache.Cache[any]
	maxResults      int
	defaultMaxEdits int
	maxMaxEdits     int

	dec *msgpack.Decoder
	enc *msgpack.Encoder
}

// NewServer creates a server answering queries against client. cache may
// be nil, in which case every request bypasses the cache entirely.
func NewServer(client *search.Client[byte, uint32], cache *hotcache.Cache[any], maxResults, defaultMaxEdits, maxMaxEdits int) *Server {
	return &Server{
		client:          client,
		cache:           cache,
		maxResults:      maxResults,
		defaultMaxEdits: defaultMaxEdits,
		maxMaxEdits:     maxMaxEdits,
		dec:             msgpack.NewDecoder(os.Stdin),
		enc:             msgpack.NewEncoder(os.Stdout),
	}
}

// Start begins processing requests until EOF or a decode error.
func (s *Server) Start() error {
	log.Debug("starting sftrie IPC server")
	if err := s.sendHealth("", "ready"); err != nil {
		return err
	}

	for {
		var env envelope
		if err := s.dec.Decode(&env); err != nil {
			if err == io.EOF {
				return nil
			}
			log.Errorf("decoding request envelope: %v", err)
			return err
		}
		s.dispatch(env)
	}
}

func (s *Server) dispatch(env envelope) {
	switch env.Type {
	case "exact":
		s.handleExact(env.Payload)
	case "prefix":
		s.handlePrefix(env.Payload)
	case "predict":
		s.handlePredict(env.Payload)
	case "approx":
		s.handleApprox(env.Payload)
	case "approx_predict":
		s.handleApproxPredict(env.Payload)
	case "health":
		s.handleHealth(env.Payload)
	default:
		s.sendError("", fmt.Sprintf("unknown request type: %s", env.Type), 400)
	}
}

func (s *Server) handleHealth(payload msgpack.RawMessage) {
	var req HealthRequest
	if err := msgpack.Unmarshal(payload, &req); err != nil {
		s.sendError("", "malformed health request", 400)
		return
	}
	if err := s.sendHealth(req.ID, "ok"); err != nil {
		log.Errorf("sending health response: %v", err)
	}
}

func (s *Server) sendHealth(id, status string) error {
	return s.send("health_response", HealthResponse{ID: id, Status: status})
}

func (s *Server) handleExact(payload msgpack.RawMessage) {
	var req ExactRequest
	if err := msgpack.Unmarshal(payload, &req); err != nil {
		s.sendError("", "malformed exact request", 400)
		return
	}

	start := time.Now()
	found := s.client.Exact(text.FromString(req.Query))
	elapsed := time.Since(start)

	s.reply("exact_response", ExactResponse{ID: req.ID, Found: found, TimeTakenUS: elapsed.Microseconds()})
}

func (s *Server) handlePrefix(payload msgpack.RawMessage) {
	var req PrefixRequest
	if err := msgpack.Unmarshal(payload, &req); err != nil {
		s.sendError("", "malformed prefix request", 400)
		return
	}

	start := time.Now()
	var prefixes []string
	s.client.Prefix(text.FromString(req.Query), func(prefix text.Text[byte], node int) bool {
		prefixes = append(prefixes, text.String(prefix))
		return true
	})
	elapsed := time.Since(start)

	s.reply("prefix_response", PrefixResponse{ID: req.ID, Prefixes: prefixes, TimeTakenUS: elapsed.Microseconds()})
}

func (s *Server) handlePredict(payload msgpack.RawMessage) {
	var req PredictRequest
	if err := msgpack.Unmarshal(payload, &req); err != nil {
		s.sendError("", "malformed predict request", 400)
		return
	}
	limit := s.resolveLimit(req.Limit)

	cacheKey := hotcache.Key{Query: req.Query, Form: hotcache.FormPredict}
	if cached, ok := s.cacheGet(cacheKey); ok {
		s.reply("predict_response", PredictResponse{ID: req.ID, Keys: cached.([]string)})
		return
	}

	start := time.Now()
	var keys []string
	s.client.Predict(text.FromString(req.Query), func(key text.Text[byte], node int) bool {
		keys = append(keys, text.String(key))
		return len(keys) < limit
	})
	elapsed := time.Since(start)

	s.cachePut(cacheKey, keys)
	s.reply("predict_response", PredictResponse{ID: req.ID, Keys: keys, TimeTakenUS: elapsed.Microseconds()})
}

func (s *Server) handleApprox(payload msgpack.RawMessage) {
	var req ApproxRequest
	if err := msgpack.Unmarshal(payload, &req); err != nil {
		s.sendError("", "malformed approx request", 400)
		return
	}
	maxEdits := s.resolveMaxEdits(req.MaxEdits)
	limit := s.resolveLimit(req.Limit)

	cacheKey := hotcache.Key{Query: req.Query, MaxEdits: maxEdits, Form: hotcache.FormApprox}
	if cached, ok := s.cacheGet(cacheKey); ok {
		s.reply("approx_response", ApproxResponse{ID: req.ID, Matches: cached.([]ApproxMatch)})
		return
	}

	start := time.Now()
	var matches []ApproxMatch
	s.client.Approx(text.FromString(req.Query), maxEdits, func(key text.Text[byte], node, edits int) bool {
		matches = append(matches, ApproxMatch{Key: text.String(key), Edits: edits})
		return len(matches) < limit
	})
	elapsed := time.Since(start)

	s.cachePut(cacheKey, matches)
	s.reply("approx_response", ApproxResponse{ID: req.ID, Matches: matches, TimeTakenUS: elapsed.Microseconds()})
}

func (s *Server) handleApproxPredict(payload msgpack.RawMessage) {
	var req ApproxPredictRequest
	if err := msgpack.Unmarshal(payload, &req); err != nil {
		s.sendError("", "malformed approx_predict request", 400)
		return
	}
	maxEdits := s.resolveMaxEdits(req.MaxEdits)
	limit := s.resolveLimit(req.Limit)

	cacheKey := hotcache.Key{Query: req.Query, MaxEdits: maxEdits, Form: hotcache.FormApproxPredict}
	if cached, ok := s.cacheGet(cacheKey); ok {
		s.reply("approx_predict_response", ApproxPredictResponse{ID: req.ID, Matches: cached.([]ApproxPredictMatch)})
		return
	}

	start := time.Now()
	var matches []ApproxPredictMatch
	s.client.ApproxPredict(text.FromString(req.Query), maxEdits, func(key text.Text[byte], node, editsPrefix, editsWhole int) bool {
		matches = append(matches, ApproxPredictMatch{Key: text.String(key), EditsPrefix: editsPrefix, EditsWhole: editsWhole})
		return len(matches) < limit
	})
	elapsed := time.Since(start)

	s.cachePut(cacheKey, matches)
	s.reply("approx_predict_response", ApproxPredictResponse{ID: req.ID, Matches: matches, TimeTakenUS: elapsed.Microseconds()})
}

func (s *Server) resolveLimit(requested int) int {
	if requested <= 0 || requested > s.maxResults {
		return s.maxResults
	}
	return requested
}

func (s *Server) resolveMaxEdits(requested int) int {
	if requested <= 0 {
		return s.defaultMaxEdits
	}
	if requested > s.maxMaxEdits {
		return s.maxMaxEdits
	}
	return requested
}

func (s *Server) cacheGet(key hotcache.Key) (any, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *Server) cachePut(key hotcache.Key, result any) {
	if s.cache == nil {
		return
	}
	s.cache.Put(key, result)
}

func (s *Server) reply(responseType string, payload any) {
	if err := s.send(responseType, payload); err != nil {
		log.Errorf("sending %s: %v", responseType, err)
	}
}

func (s *Server) send(responseType string, payload any) error {
	raw, err := msgpack.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", responseType, err)
	}
	return s.enc.Encode(envelope{Type: responseType, Payload: raw})
}

func (s *Server) sendError(id, message string, code int) {
	if err := s.send("error", ErrorResponse{ID: id, Error: message, Code: code}); err != nil {
		log.Errorf("sending error response: %v", err)
	}
}
