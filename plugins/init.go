// Package plugins links all built-in plugins into the binary.
// Each plugin package registers its factories from init.
package plugins

import (
	_ "firestige.xyz/eapsniffer/plugins/capture/afpacket"
	_ "firestige.xyz/eapsniffer/plugins/capture/pcapfile"
	_ "firestige.xyz/eapsniffer/plugins/inject/dryrun"
	_ "firestige.xyz/eapsniffer/plugins/inject/pcap"
	_ "firestige.xyz/eapsniffer/plugins/reporter/console"
	_ "firestige.xyz/eapsniffer/plugins/reporter/kafka"
)
