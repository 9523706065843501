package investments

import (
	"encoding/json"
	"math/big"
	"net/http/httptest"
	"testing"
	"time"

	investsvc "houseform-api/internal/application/investments"
	projectsvc "houseform-api/internal/application/projects"
	"houseform-api/internal/domain"
	"houseform-api/internal/infrastructure/chain/chaintest"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestList(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)
	investor := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	b := chaintest.NewBackend()
	b.AddProject(domain.Project{
		ProjectID: 0, Builder: common.HexToAddress("0xb1"),
		CurrentAmount: eth(100), GoalAmount: eth(100), SaleAmount: eth(145),
		ExpectedProfit: 20, BuilderFee: 5, CurrentShares: 10, TotalShares: 10,
		FundraisingDeadline:    now.Unix() - 1000,
		FundraisingCompletedOn: now.Unix() - 900,
		BuildingStartedOn:      now.Unix() - 800,
		BuildingCompletedOn:    now.Unix() - 700,
	})
	b.SetBalance(investor, 0, 2)

	h := &Handlers{Service: &investsvc.Service{
		Projects: &projectsvc.Service{Chain: b.Client(), Now: func() time.Time { return now }},
	}}
	app := fiber.New()
	app.Get("/users/:address/investments", h.List)

	resp, err := app.Test(httptest.NewRequest("GET", "/users/"+investor.Hex()+"/investments", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	data := out["data"].([]interface{})
	require.Len(t, data, 1)
	inv := data[0].(map[string]interface{})
	assert.Equal(t, float64(2), inv["shares"])
	assert.Equal(t, "28.55", inv["value_display"])
	assert.InDelta(t, 42.75, inv["profit_percent"], 0.0001)

	resp, err = app.Test(httptest.NewRequest("GET", "/users/0x12/investments", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
