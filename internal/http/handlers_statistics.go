package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/stats"
	"fintrack/internal/store"
)

// handleStatistics buckets the user's filtered transactions by calendar
// day. Accepts the same filter parameters as the transaction list.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	cacheKey := userID + ":day:" + r.URL.RawQuery

	if cached, ok := s.bucketCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	filter, err := transactionFilterFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.Limit = 0
	filter.Offset = 0

	transactions, _, err := s.store.FindTransactions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	buckets := stats.BucketByDay(transactions)
	s.bucketCache.Set(cacheKey, buckets)
	writeJSON(w, http.StatusOK, buckets)
}

// handleStatisticsTimeframe reports the current week, month or year at
// the granularity that timeframe is read at: weekdays for a week, days
// for a month, months for a year.
func (s *Server) handleStatisticsTimeframe(w http.ResponseWriter, r *http.Request) {
	tf := core.Timeframe(r.URL.Query().Get("timeFrame"))
	if !tf.Valid() {
		writeError(w, r, core.ErrInvalidTimeframe)
		return
	}

	userID := userIDFrom(r)
	cacheKey := userID + ":timeframe:" + string(tf)

	if cached, ok := s.bucketCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	start, end, err := stats.RangeForTimeframe(time.Now(), tf)
	if err != nil {
		writeError(w, r, err)
		return
	}

	transactions, _, err := s.store.FindTransactions(r.Context(), store.TransactionFilter{
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	buckets, err := stats.BucketByTimeframe(transactions, tf)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.bucketCache.Set(cacheKey, buckets)
	writeJSON(w, http.StatusOK, buckets)
}

// handleStatisticsCategory totals incomes and expenses per category over
// the filtered transactions. Uncategorized transactions are excluded.
func (s *Server) handleStatisticsCategory(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	cacheKey := userID + ":category:" + r.URL.RawQuery

	if cached, ok := s.categoryCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	filter, err := transactionFilterFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.Limit = 0
	filter.Offset = 0

	transactions, _, err := s.store.FindTransactions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	categories, err := s.store.ListCategories(r.Context(), userID, "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	summary := stats.AverageByCategory(transactions, names)
	s.categoryCache.Set(cacheKey, summary)
	writeJSON(w, http.StatusOK, summary)
}
