package chain

import (
	_ "embed"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"houseform-api/internal/domain"
)

var (
	//go:embed abi/HouseformManager.json
	managerABIJSON string
	//go:embed abi/HouseformManagerV1.json
	managerV1ABIJSON string
	//go:embed abi/HouseformShare.json
	shareABIJSON string
)

// ABIVersion selects the manager contract revision.
type ABIVersion string

const (
	ABIV1 ABIVersion = "v1"
	ABIV2 ABIVersion = "v2"
)

var (
	managerABI   = mustParse(managerABIJSON)
	managerV1ABI = mustParse(managerV1ABIJSON)
	shareABI     = mustParse(shareABIJSON)
)

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("chain: parse abi: %v", err))
	}
	return parsed
}

// ManagerABI returns the parsed manager ABI for a contract revision.
func ManagerABI(v ABIVersion) abi.ABI {
	if v == ABIV1 {
		return managerV1ABI
	}
	return managerABI
}

// ShareABI returns the parsed ERC-1155 share ABI.
func ShareABI() abi.ABI {
	return shareABI
}

// rawProject mirrors the HouseformManager.Project tuple. Field order follows the ABI.
type rawProject struct {
	ProjectId              *big.Int
	Builder                common.Address
	CurrentAmount          *big.Int
	GoalAmount             *big.Int
	SaleAmount             *big.Int
	ExpectedProfit         *big.Int
	BuilderFee             *big.Int
	CurrentShares          *big.Int
	TotalShares            *big.Int
	FundraisingDeadline    *big.Int
	FundraisingCompletedOn *big.Int
	BuildingStartedOn      *big.Int
	BuildingCompletedOn    *big.Int
}

// rawProjectV1 is the tuple of manager deployments that predate the builder fee.
type rawProjectV1 struct {
	ProjectId              *big.Int
	Builder                common.Address
	CurrentAmount          *big.Int
	GoalAmount             *big.Int
	SaleAmount             *big.Int
	ExpectedProfit         *big.Int
	CurrentShares          *big.Int
	TotalShares            *big.Int
	FundraisingDeadline    *big.Int
	FundraisingCompletedOn *big.Int
	BuildingStartedOn      *big.Int
	BuildingCompletedOn    *big.Int
}

func (r rawProjectV1) upgrade() rawProject {
	return rawProject{
		ProjectId:              r.ProjectId,
		Builder:                r.Builder,
		CurrentAmount:          r.CurrentAmount,
		GoalAmount:             r.GoalAmount,
		SaleAmount:             r.SaleAmount,
		ExpectedProfit:         r.ExpectedProfit,
		BuilderFee:             new(big.Int),
		CurrentShares:          r.CurrentShares,
		TotalShares:            r.TotalShares,
		FundraisingDeadline:    r.FundraisingDeadline,
		FundraisingCompletedOn: r.FundraisingCompletedOn,
		BuildingStartedOn:      r.BuildingStartedOn,
		BuildingCompletedOn:    r.BuildingCompletedOn,
	}
}

// empty reports the zero tuple the manager returns for an unknown id.
func (r rawProject) empty() bool {
	return r.Builder == (common.Address{}) && isZero(r.TotalShares) && isZero(r.GoalAmount)
}

func (r rawProject) toDomain() (domain.Project, error) {
	id, err := toUint64(r.ProjectId, "projectId")
	if err != nil {
		return domain.Project{}, err
	}
	p := domain.Project{
		ProjectID:     id,
		Builder:       r.Builder,
		CurrentAmount: r.CurrentAmount,
		GoalAmount:    r.GoalAmount,
		SaleAmount:    r.SaleAmount,
	}
	uints := []struct {
		dst  *uint64
		src  *big.Int
		name string
	}{
		{&p.ExpectedProfit, r.ExpectedProfit, "expectedProfit"},
		{&p.BuilderFee, r.BuilderFee, "builderFee"},
		{&p.CurrentShares, r.CurrentShares, "currentShares"},
		{&p.TotalShares, r.TotalShares, "totalShares"},
	}
	for _, u := range uints {
		if *u.dst, err = toUint64(u.src, u.name); err != nil {
			return domain.Project{}, err
		}
	}
	times := []struct {
		dst  *int64
		src  *big.Int
		name string
	}{
		{&p.FundraisingDeadline, r.FundraisingDeadline, "fundraisingDeadline"},
		{&p.FundraisingCompletedOn, r.FundraisingCompletedOn, "fundraisingCompletedOn"},
		{&p.BuildingStartedOn, r.BuildingStartedOn, "buildingStartedOn"},
		{&p.BuildingCompletedOn, r.BuildingCompletedOn, "buildingCompletedOn"},
	}
	for _, t := range times {
		if *t.dst, err = toInt64(t.src, t.name); err != nil {
			return domain.Project{}, err
		}
	}
	return domain.NewProject(p)
}

func isZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

func toUint64(v *big.Int, field string) (uint64, error) {
	if v == nil {
		return 0, nil
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s out of range: %s", domain.ErrInvalidProject, field, v)
	}
	return v.Uint64(), nil
}

func toInt64(v *big.Int, field string) (int64, error) {
	if v == nil {
		return 0, nil
	}
	if !v.IsInt64() {
		return 0, fmt.Errorf("%w: %s out of range: %s", domain.ErrInvalidProject, field, v)
	}
	return v.Int64(), nil
}
