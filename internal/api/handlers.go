package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"swapScope/internal/amm"
	"swapScope/internal/model"
	"swapScope/internal/replay"
	"swapScope/internal/storage"
)

type poolIDResult struct {
	PoolID string `json:"pool_id"`
	Asset0 string `json:"asset0"`
	Asset1 string `json:"asset1"`
}

type liquidityResult struct {
	PoolID     string `json:"pool_id"`
	PositionID string `json:"position_id,omitempty"`
	Minted     string `json:"minted,omitempty"`
	Amount0    string `json:"amount0,omitempty"`
	Amount1    string `json:"amount1,omitempty"`
}

type swapResult struct {
	PoolID string `json:"pool_id"`
	Output string `json:"output"`
}

type positionResult struct {
	PoolID     string `json:"pool_id"`
	Owner      string `json:"owner"`
	PositionID string `json:"position_id"`
	Shares     string `json:"shares"`
}

type balanceResult struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Balance string `json:"balance"`
}

func (s *Server) APIHealthCheck(c *gin.Context) {
	s.mu.RLock()
	seq := s.executor.Engine().Seq()
	s.mu.RUnlock()
	c.JSON(http.StatusOK, APIRespond{Result: gin.H{"status": "ok", "seq": seq}})
}

// apply runs one operation under the write lock. The path pool id, when
// present, overrides the body.
func (s *Server) apply(c *gin.Context, kind string) (replay.Result, bool) {
	var op model.Operation
	if err := c.ShouldBindJSON(&op); err != nil {
		c.JSON(http.StatusBadRequest, buildGinErrorRespond(err))
		return replay.Result{}, false
	}
	op.Op = kind
	if id := c.Param("id"); id != "" {
		op.PoolID = id
	}

	start := time.Now()
	s.mu.Lock()
	res, err := s.executor.Apply(c.Request.Context(), op)
	s.refreshGauges()
	s.mu.Unlock()
	s.metrics.observe(kind, start, err)

	if err != nil {
		writeError(c, err)
		return res, false
	}
	return res, true
}

func (s *Server) APICreatePool(c *gin.Context) {
	res, ok := s.apply(c, model.OpCreatePool)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, APIRespond{Result: gin.H{"pool_id": res.PoolID.Hex()}})
}

func (s *Server) APIAddLiquidity(c *gin.Context) {
	res, ok := s.apply(c, model.OpAddLiquidity)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, APIRespond{Result: liquidityResult{
		PoolID:     res.PoolID.Hex(),
		PositionID: res.PositionID.Hex(),
		Minted:     res.Minted.Dec(),
	}})
}

func (s *Server) APIRemoveLiquidity(c *gin.Context) {
	res, ok := s.apply(c, model.OpRemoveLiquidity)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, APIRespond{Result: liquidityResult{
		PoolID:  res.PoolID.Hex(),
		Amount0: res.Amount0.Dec(),
		Amount1: res.Amount1.Dec(),
	}})
}

func (s *Server) APISwap(c *gin.Context) {
	res, ok := s.apply(c, model.OpSwap)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, APIRespond{Result: swapResult{PoolID: res.PoolID.Hex(), Output: res.Output.Dec()}})
}

func (s *Server) APIMint(c *gin.Context) {
	if _, ok := s.apply(c, model.OpMint); ok {
		c.JSON(http.StatusOK, APIRespond{Result: gin.H{"ok": true}})
	}
}

func (s *Server) APIApprove(c *gin.Context) {
	if _, ok := s.apply(c, model.OpApprove); ok {
		c.JSON(http.StatusOK, APIRespond{Result: gin.H{"ok": true}})
	}
}

func (s *Server) APIListPools(c *gin.Context) {
	s.mu.RLock()
	pools := s.executor.Engine().State().Pools()
	s.mu.RUnlock()

	result := make([]model.Pool, 0, len(pools))
	for _, pool := range pools {
		result = append(result, storage.PoolRecord(s.cfg.ChainID, pool))
	}
	c.JSON(http.StatusOK, APIRespond{Result: result})
}

func (s *Server) APIGetPool(c *gin.Context) {
	id, err := replay.ParseHash("pool_id", c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	s.mu.RLock()
	pool, ok := s.executor.Engine().Pool(id)
	s.mu.RUnlock()
	if !ok {
		writeError(c, amm.ErrPoolDoesNotExist)
		return
	}
	c.JSON(http.StatusOK, APIRespond{Result: storage.PoolRecord(s.cfg.ChainID, pool)})
}

func (s *Server) APIPoolID(c *gin.Context) {
	assetA, err := replay.ParseAddress("asset_a", c.Query("asset_a"), true)
	if err != nil {
		writeError(c, err)
		return
	}
	assetB, err := replay.ParseAddress("asset_b", c.Query("asset_b"), true)
	if err != nil {
		writeError(c, err)
		return
	}
	fee, err := strconv.ParseUint(c.DefaultQuery("fee", "0"), 10, 32)
	if err != nil {
		writeError(c, replay.ErrInvalidArgument)
		return
	}
	id, asset0, asset1 := amm.PoolID(assetA, assetB, uint32(fee))
	c.JSON(http.StatusOK, APIRespond{Result: poolIDResult{
		PoolID: id.Hex(),
		Asset0: asset0.Hex(),
		Asset1: asset1.Hex(),
	}})
}

func (s *Server) APIGetPosition(c *gin.Context) {
	id, err := replay.ParseHash("pool_id", c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	owner, err := replay.ParseAddress("owner", c.Param("owner"), false)
	if err != nil {
		writeError(c, err)
		return
	}
	s.mu.RLock()
	shares := s.executor.Engine().PositionShares(id, owner)
	s.mu.RUnlock()
	c.JSON(http.StatusOK, APIRespond{Result: positionResult{
		PoolID:     id.Hex(),
		Owner:      owner.Hex(),
		PositionID: amm.PositionID(id, owner).Hex(),
		Shares:     shares.Dec(),
	}})
}

func (s *Server) APIBalance(c *gin.Context) {
	mem := s.executor.Ledger()
	if mem == nil {
		writeError(c, replay.ErrUnsupportedOp)
		return
	}
	asset, err := replay.ParseAddress("asset", c.Query("asset"), true)
	if err != nil {
		writeError(c, err)
		return
	}
	account, err := replay.ParseAddress("account", c.Query("account"), false)
	if err != nil {
		writeError(c, err)
		return
	}
	s.mu.RLock()
	balance := mem.BalanceOf(asset, account)
	s.mu.RUnlock()
	c.JSON(http.StatusOK, APIRespond{Result: balanceResult{
		Asset:   asset.Hex(),
		Account: account.Hex(),
		Balance: balance.Dec(),
	}})
}
