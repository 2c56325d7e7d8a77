package devserver

import (
	"net/http"

	"github.com/colonyops/sage/internal/core/review"
)

// mergeRequestParam resolves :wid and :mid.
func (s *Server) mergeRequestParam(c Context) (int64, int64, error) {
	w, err := s.workspaceParam(c, false)
	if w == nil {
		return 0, 0, err
	}
	mid, ok := c.ParamID("mid")
	if !ok {
		return 0, 0, c.BadRequest("invalid merge request id")
	}
	if _, ok := s.st.mergeRequestIn(w.ID, mid); !ok {
		return 0, 0, c.NotFound("merge request not found")
	}
	return w.ID, mid, nil
}

func (s *Server) runParam(c Context) (*runRecord, error) {
	wid, mid, err := s.mergeRequestParam(c)
	if mid == 0 {
		return nil, err
	}
	rid, ok := c.ParamID("rrid")
	if !ok {
		return nil, c.BadRequest("invalid review run id")
	}
	r, ok := s.st.runs[rid]
	if !ok || r.MergeRequestID != mid || r.workspaceID != wid {
		return nil, c.NotFound("review run not found")
	}
	return r, nil
}

func (s *Server) llmExists(id int64) bool {
	_, ok := s.st.llms[id]
	return ok
}

func (s *Server) listRuns(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, mid, err := s.mergeRequestParam(c)
	if mid == 0 {
		return err
	}
	out := s.st.runsOf(mid)
	if out == nil {
		out = []review.Run{}
	}
	return c.OK(map[string]any{"runs": out})
}

func (s *Server) startRun(c Context) error {
	var in review.RunInput
	if err := c.Decode(&in); err != nil {
		return c.BadRequest("invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wid, mid, err := s.mergeRequestParam(c)
	if mid == 0 {
		return err
	}
	if in.LLMIntegrationID == 0 || !s.llmExists(in.LLMIntegrationID) {
		return c.JSON(http.StatusBadRequest, map[string][]string{"llm_integration_id": {"Select a valid LLM integration."}})
	}
	r := s.st.startRun(wid, mid, in.LLMIntegrationID, s.now())
	c.L.Info().Int64("run", r.ID).Int64("merge_request", mid).Msg("review queued")
	return c.Created(r.Run)
}

// getRun advances an active run one step before answering.
func (s *Server) getRun(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.runParam(c)
	if r == nil {
		return err
	}
	s.st.advance(r, s.now())
	return c.OK(r.Run)
}

func (s *Server) listComments(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.runParam(c)
	if r == nil {
		return err
	}
	out := s.st.comments[r.ID]
	if out == nil {
		out = []review.Comment{}
	}
	return c.OK(map[string]any{"comments": out})
}

func (s *Server) rerunRun(c Context) error {
	var in review.RunInput
	if err := c.Decode(&in); err != nil {
		return c.BadRequest("invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.runParam(c)
	if src == nil {
		return err
	}
	llmID := in.LLMIntegrationID
	if llmID == 0 {
		llmID = src.LLMIntegrationID
	}
	if !s.llmExists(llmID) {
		return c.JSON(http.StatusBadRequest, map[string][]string{"llm_integration_id": {"Select a valid LLM integration."}})
	}
	r := s.st.startRun(src.workspaceID, src.MergeRequestID, llmID, s.now())
	return c.Created(r.Run)
}

// cancelRun rejects runs that already finished with 409.
func (s *Server) cancelRun(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.runParam(c)
	if r == nil {
		return err
	}
	if r.Status.IsTerminal() {
		return c.Conflict("Review run already finished.")
	}
	r.Status = review.StatusCanceled
	finished := s.now()
	r.FinishedAt = &finished
	return c.NoContent()
}

func (s *Server) publishRun(c Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.runParam(c)
	if r == nil {
		return err
	}
	if r.Status != review.StatusSucceeded {
		return c.BadRequest("Only succeeded review runs can be published.")
	}
	posted := 0
	comments := s.st.comments[r.ID]
	for i := range comments {
		if !comments[i].PostedToVCS {
			comments[i].PostedToVCS = true
			posted++
		}
	}
	return c.OK(map[string]int{"posted": posted})
}
