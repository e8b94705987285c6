package swap

// SettlementBackend names the asset transfer backend a Client runs on
type SettlementBackend string

const (
	BackendLedger SettlementBackend = "ledger"
	BackendChain  SettlementBackend = "chain"
)

// StatusResult is the committed status of one (maker, id) pair
type StatusResult struct {
	Maker  string `json:"maker"`
	ID     string `json:"id"`
	Status string `json:"status"`
}
