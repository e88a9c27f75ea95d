package blockchain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// airdropABI TPF每日空投合约中后端用到的方法
const airdropABI = `[
	{"type":"function","name":"canUserClaim","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"}],
	 "outputs":[{"name":"canClaim","type":"bool"},{"name":"timeUntilNextClaim","type":"uint256"}]},
	{"type":"function","name":"isBlocked","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"emergencyPaused","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"dailyAirdrop","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getContractBalance","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"claimFor","stateMutability":"nonpayable",
	 "inputs":[{"name":"user","type":"address"}],
	 "outputs":[]}
]`

var parsedAirdropABI = mustParseABI(airdropABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
