package api

import (
	"errors"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/walletdash/internal/chain"
	"github.com/Mohsinsiddi/walletdash/internal/wallet"
)

const invalidAddressDetail = "Invalid Ethereum address. Must be 42 characters and start with 0x"

// Amount is a wei value with its human unit.
type Amount struct {
	Wei  string `json:"wei"`
	Gwei string `json:"gwei,omitempty"`
	ETH  string `json:"eth,omitempty"`
}

// AccountResponse is the body of GET /api/account/:address.
type AccountResponse struct {
	Address     string `json:"address"`
	GasPrice    Amount `json:"gas_price"`
	BlockNumber uint64 `json:"block_number"`
	Balance     Amount `json:"balance"`
}

// lookupError names the value that could not be fetched.
type lookupError struct {
	what string
	err  error
}

func (e *lookupError) Error() string { return "Failed to fetch " + e.what }
func (e *lookupError) Unwrap() error { return e.err }

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func (s *Server) account(c *gin.Context) {
	address := c.Param("address")
	if err := chain.ValidateAddress(address); err != nil {
		detail(c, http.StatusBadRequest, invalidAddressDetail)
		return
	}

	var (
		gasPrice *big.Int
		block    uint64
		balance  *chain.Balance
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		p, err := s.cache.GasPrice(ctx)
		if err != nil {
			return &lookupError{what: "gas price", err: err}
		}
		gasPrice = p
		return nil
	})
	g.Go(func() error {
		n, err := s.cache.BlockNumber(ctx)
		if err != nil {
			return &lookupError{what: "block number", err: err}
		}
		block = n
		return nil
	})
	g.Go(func() error {
		b, err := s.deps.Chain.BalanceAt(ctx, address)
		if err != nil {
			return &lookupError{what: "balance", err: err}
		}
		balance = b
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("account lookup failed", zap.String("address", address), zap.Error(errors.Unwrap(err)))
		c.Error(err) //nolint:errcheck
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}

	if s.deps.Accounts != nil {
		if _, err := s.deps.Accounts.Upsert(address, balance.Wei.String()); err != nil {
			s.logger.Error("storing account snapshot", zap.String("address", address), zap.Error(err))
			detail(c, http.StatusInternalServerError, "Failed to store account")
			return
		}
	}

	c.JSON(http.StatusOK, AccountResponse{
		Address:     address,
		GasPrice:    Amount{Wei: gasPrice.String(), Gwei: chain.WeiToGwei(gasPrice)},
		BlockNumber: block,
		Balance:     Amount{Wei: balance.Wei.String(), ETH: balance.ETH},
	})
}

func (s *Server) accounts(c *gin.Context) {
	if s.deps.Accounts == nil {
		c.JSON(http.StatusOK, gin.H{"accounts": []any{}})
		return
	}
	list, err := s.deps.Accounts.List()
	if err != nil {
		s.logger.Error("listing accounts", zap.Error(err))
		detail(c, http.StatusInternalServerError, "Failed to list accounts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": list})
}

// --- session ---

type connectRequest struct {
	Wallet  string `json:"wallet"`
	Address string `json:"address"`
}

func (s *Server) session(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Tracker.Snapshot())
}

func (s *Server) connect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Request body must be JSON with a wallet or address")
		return
	}

	var err error
	switch {
	case req.Wallet != "":
		err = s.deps.Session.Connect(req.Wallet)
	case req.Address != "":
		err = s.deps.Session.ConnectAddress(req.Address)
	default:
		detail(c, http.StatusBadRequest, "Either wallet or address is required")
		return
	}

	switch {
	case errors.Is(err, wallet.ErrWalletNotFound):
		detail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, chain.ErrInvalidAddress):
		detail(c, http.StatusBadRequest, invalidAddressDetail)
	case err != nil:
		detail(c, http.StatusInternalServerError, err.Error())
	default:
		c.JSON(http.StatusOK, s.deps.Tracker.Snapshot())
	}
}

func (s *Server) disconnect(c *gin.Context) {
	if err := s.deps.Session.Disconnect(); err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, s.deps.Tracker.Snapshot())
}

func (s *Server) refetchBalance(c *gin.Context) {
	s.deps.Tracker.RefetchBalance()
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) refetchTransactions(c *gin.Context) {
	s.deps.Tracker.RefetchTransactions()
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
