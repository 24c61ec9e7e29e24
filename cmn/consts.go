package cmn

// Provider enum — the four control/data planes this emulator impersonates.
const (
	ProviderAWS   = "aws"
	ProviderAzure = "azure"
	ProviderGCP   = "gcp"
	ProviderZero  = "zero"
)

// AWS JSON-1.1 service prefixes, as carried in the `X-Amz-Target` header
// (`"<ServicePrefix>.<Action>"`). One entry per emulated JSON-protocol
// service.
const (
	SvcDynamoDB     = "DynamoDB_20120810"
	SvcKMS          = "AWSKMS"
	SvcEvents       = "AWSEvents"
	SvcSecrets      = "SecretsManagerV2" // AWS's actual prefix for the modern API
	SvcStepFn       = "AWSStepFunctions"
	SvcCognito      = "AWSCognitoIdentityProviderService"
	SvcSSM          = "AmazonSSM"
	SvcCloudWatch   = "GraniteServiceVersion20100801" // CloudWatch's JSON-1.1 service prefix
	SvcLogs         = "Logs_20140328"
)

// AWS Query-protocol (form-encoded) services.
const (
	SvcSQS = "sqs"
	SvcSNS = "sns"
	SvcIAM = "iam"
	SvcSTS = "sts"
)

const (
	DefaultAccountID = "000000000000"
	DefaultRegion    = "us-east-1"
	DefaultPartition = "aws"
)

// Queue defaults (spec.md §3 "Queues").
const (
	DefaultVisibilityTimeout     = 30   // seconds
	DefaultMessageRetentionSecs  = 345600
	DefaultReceiveWaitSecs       = 0
)

// ASL interpreter bound (spec.md §4.3/§5).
const MaxASLIterations = 1000
