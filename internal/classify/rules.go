package classify

import (
	"regexp"

	"github.com/htmlephant/htmlephant/internal/model"
)

// rule matches a URL or content signature to a known service.
type rule struct {
	pattern     *regexp.Regexp
	description string
	visibility  model.Visibility
}

// externalResourceRules maps external resource URLs to known third-party
// services. Checked in order; first match wins, so more specific patterns
// must come before broader ones.
var externalResourceRules = []rule{
	// Analytics
	{regexp.MustCompile(`(?i)google[-_]?analytics|ga\.js|analytics\.js`), "Google Analytics", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)gtag/js|googletagmanager\.com/gtag`), "Google Analytics 4 (gtag)", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)googletagmanager\.com/gtm`), "Google Tag Manager", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)hotjar\.com|static\.hotjar\.com`), "Hotjar (heatmaps/recordings)", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)fullstory\.com|fs\.js`), "FullStory (session replay)", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)heap[-_]?analytics|heapanalytics\.com`), "Heap Analytics", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)amplitude\.com|amplitude\.min\.js`), "Amplitude Analytics", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)mixpanel\.com|mixpanel\.min\.js`), "Mixpanel Analytics", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)segment\.com|analytics\.min\.js|cdn\.segment`), "Segment (analytics router)", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)tealium\.com|utag\.js`), "Tealium (tag management)", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)adobe.*analytics|omniture|s_code\.js`), "Adobe Analytics", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)clarity\.ms|clarity\.js`), "Microsoft Clarity", model.VisibilityBackend},

	// Advertising / tracking pixels
	{regexp.MustCompile(`(?i)connect\.facebook\.net|fbevents\.js|fbq\(`), "Facebook/Meta Pixel", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)googleads|google_ads|conversion\.js|adservices`), "Google Ads conversion tracking", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)snap\.licdn|linkedin\.com/insight|_linkedin_`), "LinkedIn Insight Tag", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)tiktok\.com/i18n|ttq\.`), "TikTok Pixel", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)pinterest\.com/ct\.js|pintrk\(`), "Pinterest Tag", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)ads\.twitter|static\.ads-twitter`), "Twitter/X Ads Pixel", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)criteo\.com|criteo\.net`), "Criteo (retargeting)", model.VisibilityBackend},

	// Chat / support widgets
	{regexp.MustCompile(`(?i)intercom\.io|intercomcdn\.com|widget\.intercom`), "Intercom (chat/support widget)", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)drift\.com|js\.driftt\.com`), "Drift (chat widget)", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)zendesk\.com|zdassets\.com|zopim`), "Zendesk (support widget)", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)livechat|livechatinc\.com`), "LiveChat widget", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)tawk\.to`), "Tawk.to (chat widget)", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)crisp\.chat|client\.crisp\.chat`), "Crisp (chat widget)", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)gorgias`), "Gorgias (support widget)", model.VisibilityUserVisible},

	// E-commerce platforms
	{regexp.MustCompile(`(?i)cdn\.shopify\.com`), "Shopify platform script", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)shopify-analytics|shopify_analytics`), "Shopify Analytics", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)klaviyo\.com|static\.klaviyo`), "Klaviyo (email marketing)", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)yotpo\.com`), "Yotpo (reviews widget)", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)judge\.me`), "Judge.me (reviews widget)", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)stamped\.io`), "Stamped.io (reviews/loyalty)", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)loox\.io`), "Loox (reviews widget)", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)recharge\.com|rechargepayments`), "ReCharge (subscriptions)", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)afterpay|afterpay\.js`), "Afterpay (BNPL widget)", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)klarna`), "Klarna (BNPL widget)", model.VisibilityUserVisible},

	// Fonts
	{regexp.MustCompile(`(?i)fonts\.googleapis\.com|fonts\.gstatic\.com`), "Google Fonts", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)use\.typekit\.net|typekit`), "Adobe Fonts / Typekit", model.VisibilityUserVisible},

	// CDN / frameworks
	{regexp.MustCompile(`(?i)jquery\.min\.js|jquery[-.](\d)`), "jQuery library", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)react\.production\.min|react-dom`), "React framework", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)bootstrap\.min\.(js|css)`), "Bootstrap framework", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)unpkg\.com|cdnjs\.cloudflare\.com|cdn\.jsdelivr`), "Public CDN resource", model.VisibilityBackend},

	// Consent / privacy
	{regexp.MustCompile(`(?i)cookiebot|consent\.cookiebot`), "Cookiebot (consent management)", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)onetrust\.com|optanon`), "OneTrust (consent management)", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)trustarc|truste\.com`), "TrustArc (privacy management)", model.VisibilityUserVisible},

	// Performance / monitoring
	{regexp.MustCompile(`(?i)sentry\.io|browser\.sentry`), "Sentry (error monitoring)", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)newrelic\.com|nr-data\.net|NREUM`), "New Relic (APM)", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)datadog.*rum|datadoghq\.com`), "Datadog RUM", model.VisibilityBackend},
}

// inlineContentRules recognizes known signatures inside inline script bodies.
var inlineContentRules = []rule{
	{regexp.MustCompile(`(?i)gtag\s*\(|dataLayer\.push`), "Google Tag Manager / gtag inline config", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)fbq\s*\(`), "Facebook Pixel inline initialization", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)_learnq|klaviyo`), "Klaviyo inline tracking", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)shopify\..*analytics|Shopify\.analytics`), "Shopify inline analytics", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)ttq\.`), "TikTok Pixel inline initialization", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)pintrk\s*\(`), "Pinterest Tag inline initialization", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)hj\s*\(|_hjSettings`), "Hotjar inline initialization", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)intercomSettings|window\.Intercom`), "Intercom inline configuration", model.VisibilityUserVisible},
	{regexp.MustCompile(`(?i)window\.__reactRouterContext`), "React Router / Hydrogen hydration state (large data payload)", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)window\.__REDUX_STATE__`), "Redux initial state payload", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)Shopify\.theme`), "Shopify theme configuration", model.VisibilityBackend},
}

// jsonLDTypeRules recognizes schema.org types in raw JSON-LD text. Matching
// on the raw text instead of parsed JSON keeps classification working even
// when the block is malformed.
var jsonLDTypeRules = []rule{
	{regexp.MustCompile(`(?i)"@type"\s*:\s*"Product"`), "Product structured data (JSON-LD)", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)"@type"\s*:\s*"BreadcrumbList"`), "Breadcrumb structured data (JSON-LD)", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)"@type"\s*:\s*"Organization"`), "Organization structured data (JSON-LD)", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)"@type"\s*:\s*"WebSite"`), "Website structured data (JSON-LD)", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)"@type"\s*:\s*"Article"`), "Article structured data (JSON-LD)", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)"@type"\s*:\s*"CollectionPage"`), "Collection page structured data (JSON-LD)", model.VisibilityBackend},
	{regexp.MustCompile(`(?i)"@type"\s*:\s*"ItemList"`), "Item list structured data (JSON-LD)", model.VisibilityBackend},
}
