package registry

// sources is the deployed catalogue. Reliability tier 5 is reserved for
// official regulators and legislatures; 3 and below are press and
// aggregators.
var sources = []Source{
	{
		Name:                "FTC Press Releases",
		URL:                 "https://www.ftc.gov/news-events/news/press-releases",
		Type:                TypeGovernmentPage,
		AuthorityType:       AuthorityNational,
		Jurisdiction:        "United States",
		JurisdictionCountry: "United States",
		ReliabilityTier:     5,
		SearchKeywords:      "COPPA children privacy minors age verification",
		Description:         "Federal Trade Commission enforcement and rulemaking announcements",
	},
	{
		Name:                "FTC COPPA Rule",
		URL:                 "https://www.ftc.gov/legal-library/browse/rules/childrens-online-privacy-protection-rule-coppa",
		Type:                TypeLegalDatabase,
		AuthorityType:       AuthorityNational,
		Jurisdiction:        "United States",
		JurisdictionCountry: "United States",
		ReliabilityTier:     5,
		SearchKeywords:      "COPPA children's online privacy protection rule",
		Description:         "Primary text and amendments of the COPPA Rule",
	},
	{
		Name:                "US Congress Child Safety Bills",
		URL:                 "https://www.congress.gov/rss/most-viewed-bills.xml",
		Type:                TypeRSSFeed,
		AuthorityType:       AuthorityNational,
		Jurisdiction:        "United States",
		JurisdictionCountry: "United States",
		ReliabilityTier:     5,
		SearchKeywords:      "KOSA kids online safety act minors social media",
		Description:         "Congress.gov bill activity feed",
	},
	{
		Name:                "California Legislature AB-2273",
		URL:                 "https://leginfo.legislature.ca.gov/faces/billTextClient.xhtml?bill_id=202120220AB2273",
		Type:                TypeGovernmentPage,
		AuthorityType:       AuthorityState,
		Jurisdiction:        "California, United States",
		JurisdictionCountry: "United States",
		JurisdictionState:   "California",
		ReliabilityTier:     5,
		SearchKeywords:      "age appropriate design code act California AB-2273",
		Description:         "California Age-Appropriate Design Code Act bill text",
	},
	{
		Name:                "Texas SCOPE Act",
		URL:                 "https://capitol.texas.gov/BillLookup/History.aspx?LegSess=88R&Bill=HB18",
		Type:                TypeGovernmentPage,
		AuthorityType:       AuthorityState,
		Jurisdiction:        "Texas, United States",
		JurisdictionCountry: "United States",
		JurisdictionState:   "Texas",
		ReliabilityTier:     5,
		SearchKeywords:      "SCOPE act securing children online parental empowerment",
		Description:         "Texas HB 18 legislative history",
	},
	{
		Name:                "European Commission DSA Minors",
		URL:                 "https://digital-strategy.ec.europa.eu/en/policies/dsa-protection-minors",
		Type:                TypeGovernmentPage,
		AuthorityType:       AuthoritySupranational,
		Jurisdiction:        "European Union",
		JurisdictionCountry: "European Union",
		ReliabilityTier:     5,
		SearchKeywords:      "DSA digital services act article 28 minors protection",
		Description:         "Commission guidance on DSA protection of minors",
	},
	{
		Name:                "UK Ofcom Online Safety",
		URL:                 "https://www.ofcom.org.uk/online-safety",
		Type:                TypeGovernmentPage,
		AuthorityType:       AuthorityNational,
		Jurisdiction:        "United Kingdom",
		JurisdictionCountry: "United Kingdom",
		ReliabilityTier:     5,
		SearchKeywords:      "online safety act children codes age assurance",
		Description:         "Ofcom Online Safety Act implementation hub",
	},
	{
		Name:                "UK ICO Children's Code",
		URL:                 "https://ico.org.uk/for-organisations/uk-gdpr-guidance-and-resources/childrens-information/childrens-code-guidance-and-resources/",
		Type:                TypeGovernmentPage,
		AuthorityType:       AuthorityNational,
		Jurisdiction:        "United Kingdom",
		JurisdictionCountry: "United Kingdom",
		ReliabilityTier:     5,
		SearchKeywords:      "age appropriate design code children's code ICO",
		Description:         "ICO Age Appropriate Design Code guidance",
	},
	{
		Name:                "eSafety Commissioner Newsroom",
		URL:                 "https://www.esafety.gov.au/newsroom",
		Type:                TypeGovernmentPage,
		AuthorityType:       AuthorityNational,
		Jurisdiction:        "Australia",
		JurisdictionCountry: "Australia",
		ReliabilityTier:     5,
		SearchKeywords:      "online safety act age verification social media minimum age",
		Description:         "Australian eSafety Commissioner announcements",
	},
	{
		Name:                "EUR-Lex Recent Regulation",
		URL:                 "https://eur-lex.europa.eu/EN/display-feed.rss?myRssId=e1Wry5%2FZSlKiPbW8eZKUpg%3D%3D",
		Type:                TypeRSSFeed,
		AuthorityType:       AuthoritySupranational,
		Jurisdiction:        "European Union",
		JurisdictionCountry: "European Union",
		ReliabilityTier:     5,
		SearchKeywords:      "regulation directive minors data protection",
		Description:         "EUR-Lex recently published legislation feed",
	},
	{
		Name:                "IAPP News",
		URL:                 "https://iapp.org/news/rss",
		Type:                TypeRSSFeed,
		AuthorityType:       AuthorityNational,
		Jurisdiction:        "United States",
		JurisdictionCountry: "United States",
		ReliabilityTier:     3,
		SearchKeywords:      "children privacy age verification COPPA GDPR minors",
		Description:         "Privacy-profession trade press",
	},
	{
		Name:                "TechCrunch Policy Search",
		URL:                 "https://techcrunch.com/tag/online-safety/feed/",
		Type:                TypeNewsSearch,
		AuthorityType:       AuthorityNational,
		Jurisdiction:        "United States",
		JurisdictionCountry: "United States",
		ReliabilityTier:     2,
		SearchKeywords:      "teen safety social media regulation age verification",
		Description:         "Technology press coverage of online-safety policy",
	},
	{
		Name:                "India MeitY DPDP",
		URL:                 "https://www.meity.gov.in/data-protection-framework",
		Type:                TypeGovernmentPage,
		AuthorityType:       AuthorityNational,
		Jurisdiction:        "India",
		JurisdictionCountry: "India",
		ReliabilityTier:     5,
		SearchKeywords:      "DPDP digital personal data protection act children consent",
		Description:         "Ministry of Electronics and IT data-protection framework",
	},
	{
		Name:                "X Child Safety Policy Watch",
		URL:                 "https://api.twitter.com/2/tweets/search/recent",
		Type:                TypeMicroblogSearch,
		AuthorityType:       AuthorityNational,
		Jurisdiction:        "United States",
		JurisdictionCountry: "United States",
		ReliabilityTier:     1,
		SearchKeywords:      `("kids online safety act" OR "age verification law" OR COPPA) -is:retweet lang:en`,
		Description:         "Recent-search query tracking regulator and legislator accounts",
	},
	{
		Name:                "X EU Minors Regulation Watch",
		URL:                 "https://api.twitter.com/2/tweets/search/recent",
		Type:                TypeMicroblogSearch,
		AuthorityType:       AuthoritySupranational,
		Jurisdiction:        "European Union",
		JurisdictionCountry: "European Union",
		ReliabilityTier:     1,
		SearchKeywords:      `("digital services act" minors OR "article 28" DSA) -is:retweet lang:en`,
		Description:         "Recent-search query tracking DSA minor-protection chatter",
	},
}
