package resolver

// Rules maps a resource type to the ordered list of resource types that must
// exist before it can be created. Types absent from the map have no rules and
// are never blocked. The table is fixed at construction time and read-only.
type Rules map[string][]string

// DefaultRules returns the dependency table shipped with fortress.
func DefaultRules() Rules {
	return Rules{
		"vpc":              {},
		"subnet":           {"vpc"},
		"security_group":   {"vpc"},
		"internet_gateway": {"vpc"},
		"nat_gateway":      {"subnet", "internet_gateway"},
		"route_table":      {"vpc"},
		"ec2":              {"subnet", "security_group"},
		"rds":              {"subnet", "security_group"},
		"elasticache":      {"subnet", "security_group"},
		"elb":              {"subnet", "security_group"},
		"lambda":           {"security_group"},
		"ecs":              {"vpc", "security_group"},
		"eks":              {"vpc", "subnet", "security_group"},
		"s3":               {},
		"dynamodb":         {},
		"sqs":              {},
		"sns":              {},
		"iam":              {},
	}
}

// RequiredFor returns the dependency list for a resource type and whether the
// type is known to the table at all.
func (r Rules) RequiredFor(service string) ([]string, bool) {
	deps, ok := r[service]
	return deps, ok
}
