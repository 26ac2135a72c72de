// Package security builds TLS client settings for the connections a search
// opens: the redis broker used by distributed engines and the redis ledger.
//
//	redis:
//	  addr: cache.internal:6380
//	  tls:
//	    ca_file: /etc/automl/ca.pem
//	    min_version: "1.3"
package security
