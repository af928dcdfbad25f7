package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ledger/broker"
	"github.com/rustyeddy/ledger/journal"
	"github.com/rustyeddy/ledger/portfolio"
)

// --- Request/Response types ---

// PortfolioResponse is the JSON body for GET /portfolio.
type PortfolioResponse struct {
	AccountID        string          `json:"account_id"`
	Currency         string          `json:"currency"`
	Cash             decimal.Decimal `json:"cash"`
	HoldingsValue    decimal.Decimal `json:"holdings_value"`
	UnleveredCost    decimal.Decimal `json:"unlevered_cost"`
	UnrealizedProfit decimal.Decimal `json:"unrealized_profit"`
	RealizedProfit   decimal.Decimal `json:"realized_profit"`
	Fees             decimal.Decimal `json:"fees"`
	SaleVolume       decimal.Decimal `json:"sale_volume"`
	PortfolioValue   decimal.Decimal `json:"portfolio_value"`
	Invested         bool            `json:"invested"`
}

// HoldingResponse is one position.
type HoldingResponse struct {
	Symbol          string          `json:"symbol"`
	Quantity        int64           `json:"quantity"`
	AveragePrice    decimal.Decimal `json:"average_price"`
	Fees            decimal.Decimal `json:"fees"`
	RealizedProfit  decimal.Decimal `json:"realized_profit"`
	SaleVolume      decimal.Decimal `json:"sale_volume"`
	LastTradeProfit decimal.Decimal `json:"last_trade_profit"`
}

// BuyingPowerResponse is the JSON body for GET /buying-power/{symbol}.
type BuyingPowerResponse struct {
	Symbol      string          `json:"symbol"`
	Direction   string          `json:"direction"`
	BuyingPower decimal.Decimal `json:"buying_power"`
}

// TransactionResponse is one realized-profit journal entry.
type TransactionResponse struct {
	Time   time.Time       `json:"time"`
	Profit decimal.Decimal `json:"profit"`
}

// TransactionsResponse is the JSON body for GET /transactions.
type TransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Trades       int                   `json:"trades"`
	Wins         int                   `json:"wins"`
	Losses       int                   `json:"losses"`
	Net          decimal.Decimal       `json:"net"`
	ProfitFactor decimal.Decimal       `json:"profit_factor"`
	WinRate      decimal.Decimal       `json:"win_rate"`
}

// FillRequest is the JSON body for POST /fills. Quantity is signed:
// positive buys, negative sells.
type FillRequest struct {
	ID       string          `json:"id,omitempty"`
	Time     time.Time       `json:"time,omitzero"`
	Symbol   string          `json:"symbol"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// FillResponse is the JSON body returned from POST /fills.
type FillResponse struct {
	FillID         string          `json:"fill_id"`
	Time           time.Time       `json:"time"`
	Fee            decimal.Decimal `json:"fee"`
	Closed         bool            `json:"closed"`
	ClosedQuantity int64           `json:"closed_quantity"`
	RealizedProfit decimal.Decimal `json:"realized_profit"`
	NetProfit      decimal.Decimal `json:"net_profit"`
	JournalTime    *time.Time      `json:"journal_time,omitempty"`
	Holding        HoldingResponse `json:"holding"`
	Cash           decimal.Decimal `json:"cash"`
}

func holdingResponse(h portfolio.Holding) HoldingResponse {
	return HoldingResponse{
		Symbol:          h.Symbol,
		Quantity:        h.Quantity,
		AveragePrice:    h.AveragePrice,
		Fees:            h.Fees,
		RealizedProfit:  h.RealizedProfit,
		SaleVolume:      h.SaleVolume,
		LastTradeProfit: h.LastTradeProfit,
	}
}

// --- HTTP Handlers ---

// Health handles GET /health
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "ledger"})
}

// GetPortfolio handles GET /api/v1/portfolio
func (s *Server) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	acct := s.eng.Account()
	t := s.eng.Totals()
	writeJSON(w, http.StatusOK, PortfolioResponse{
		AccountID:        acct.ID,
		Currency:         acct.Currency,
		Cash:             t.Cash,
		HoldingsValue:    t.HoldingsValue,
		UnleveredCost:    t.UnleveredCost,
		UnrealizedProfit: t.UnrealizedProfit,
		RealizedProfit:   t.RealizedProfit,
		Fees:             t.Fees,
		SaleVolume:       t.SaleVolume,
		PortfolioValue:   t.PortfolioValue,
		Invested:         t.Invested(),
	})
}

// ListHoldings handles GET /api/v1/holdings
func (s *Server) ListHoldings(w http.ResponseWriter, r *http.Request) {
	view := s.eng.Holdings()
	out := make([]HoldingResponse, 0, view.Len())
	for _, h := range view.All() {
		out = append(out, holdingResponse(h))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetHolding handles GET /api/v1/holdings/{symbol}
func (s *Server) GetHolding(w http.ResponseWriter, r *http.Request) {
	h, err := s.eng.Holding(chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holdingResponse(h))
}

// GetBuyingPower handles GET /api/v1/buying-power/{symbol}?direction=buy|sell|hold
func (s *Server) GetBuyingPower(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	dir, err := broker.ParseDirection(r.URL.Query().Get("direction"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	bp, err := s.eng.BuyingPower(symbol, dir)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BuyingPowerResponse{Symbol: symbol, Direction: dir.String(), BuyingPower: bp})
}

// ListTransactions handles GET /api/v1/transactions?start=&end= (RFC3339,
// both optional, end exclusive).
func (s *Server) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var start, end time.Time
	var err error
	if v := q.Get("start"); v != "" {
		if start, err = time.Parse(time.RFC3339Nano, v); err != nil {
			writeError(w, "invalid start: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if v := q.Get("end"); v != "" {
		if end, err = time.Parse(time.RFC3339Nano, v); err != nil {
			writeError(w, "invalid end: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	entries := s.eng.TransactionsBetween(start, end)

	st := journal.Summarize(entries)
	resp := TransactionsResponse{
		Transactions: make([]TransactionResponse, 0, len(entries)),
		Trades:       st.Trades,
		Wins:         st.Wins,
		Losses:       st.Losses,
		Net:          st.Net,
		ProfitFactor: st.ProfitFactor,
		WinRate:      st.WinRate,
	}
	for _, e := range entries {
		resp.Transactions = append(resp.Transactions, TransactionResponse{Time: e.Time, Profit: e.Profit})
	}
	writeJSON(w, http.StatusOK, resp)
}

// PostFill handles POST /api/v1/fills
func (s *Server) PostFill(w http.ResponseWriter, r *http.Request) {
	var req FillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	out, err := s.eng.ProcessFill(broker.Fill{
		ID:       req.ID,
		Time:     req.Time,
		Symbol:   req.Symbol,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	// The fill is committed; sink failures are reported but do not undo it.
	if rec, ok := out.TradeRecord(); ok {
		if err := s.sink.RecordTrade(rec); err != nil {
			s.log.Error("record trade", "fill", out.Fill.ID, "err", err)
		}
	}
	if err := s.sink.RecordEquity(s.eng.Totals().Snapshot(out.Fill.Time)); err != nil {
		s.log.Error("record equity", "fill", out.Fill.ID, "err", err)
	}

	s.log.Info("fill posted",
		"id", out.Fill.ID,
		"fill", out.Fill.String(),
		"cash", out.Cash.String(),
	)

	resp := FillResponse{
		FillID:         out.Fill.ID,
		Time:           out.Fill.Time,
		Fee:            out.Fee,
		Closed:         out.Closed,
		ClosedQuantity: out.ClosedQuantity,
		RealizedProfit: out.RealizedProfit,
		NetProfit:      out.NetProfit(),
		Holding:        holdingResponse(out.Holding),
		Cash:           out.Cash,
	}
	if out.Closed {
		jt := out.JournalTime
		resp.JournalTime = &jt
	}
	writeJSON(w, http.StatusCreated, resp)
}

// statusFor maps ledger errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, portfolio.ErrUnknownSymbol):
		return http.StatusNotFound
	case portfolio.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeLedgerError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("ledger error", "err", err)
	}
	writeError(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
