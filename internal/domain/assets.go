package domain

// TechStocks is the fixed allow-list of supported technology equities,
// mapped to display names.
var TechStocks = map[string]string{
	"AAPL":  "Apple Inc.",
	"GOOGL": "Alphabet Inc.",
	"MSFT":  "Microsoft Corporation",
	"AMZN":  "Amazon.com, Inc.",
	"META":  "Meta Platforms, Inc.",
	"NVDA":  "NVIDIA Corporation",
	"TSLA":  "Tesla, Inc.",
	"AMD":   "Advanced Micro Devices, Inc.",
	"INTC":  "Intel Corporation",
	"CRM":   "Salesforce, Inc.",
}

// CryptoAssets is the fixed allow-list of supported cryptocurrencies,
// mapped to display names.
var CryptoAssets = map[string]string{
	"BTC":  "Bitcoin",
	"ETH":  "Ethereum",
	"USDT": "Tether",
}
