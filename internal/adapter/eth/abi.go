package eth

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// campaignTuple lists the fields of one campaign record in contract order.
const campaignTuple = `[
	{"name":"owner","type":"address"},
	{"name":"title","type":"string"},
	{"name":"description","type":"string"},
	{"name":"target","type":"uint256"},
	{"name":"deadline","type":"uint256"},
	{"name":"amountCollected","type":"uint256"},
	{"name":"image","type":"string"},
	{"name":"donators","type":"address[]"},
	{"name":"donations","type":"uint256[]"},
	{"name":"isActive","type":"bool"}
]`

// CampaignABI declares the entry points the client invokes. The deployed
// contract may expose more; these are the ones the gateway relies on.
const CampaignABI = `[
	{"type":"function","name":"createCampaign","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"_owner","type":"address"},
		{"name":"_title","type":"string"},
		{"name":"_description","type":"string"},
		{"name":"_target","type":"uint256"},
		{"name":"_deadline","type":"uint256"},
		{"name":"_image","type":"string"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"deleteCampaign","stateMutability":"nonpayable",
	 "inputs":[{"name":"_id","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"donateToCampaign","stateMutability":"payable",
	 "inputs":[{"name":"_id","type":"uint256"}],
	 "outputs":[]},
	{"type":"function","name":"getCampaigns","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"tuple[]","components":` + campaignTuple + `}]},
	{"type":"function","name":"getCampaign","stateMutability":"view",
	 "inputs":[{"name":"_id","type":"uint256"}],
	 "outputs":[{"name":"","type":"tuple","components":` + campaignTuple + `}]},
	{"type":"function","name":"getDonators","stateMutability":"view",
	 "inputs":[{"name":"_id","type":"uint256"}],
	 "outputs":[{"name":"","type":"address[]"},{"name":"","type":"uint256[]"}]}
]`

var (
	parsedOnce sync.Once
	parsedABI  abi.ABI
	parsedErr  error
)

func campaignABI() (abi.ABI, error) {
	parsedOnce.Do(func() {
		parsedABI, parsedErr = abi.JSON(strings.NewReader(CampaignABI))
	})
	return parsedABI, parsedErr
}
